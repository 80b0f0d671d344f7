package vault

import (
	"fmt"
	"sort"
	"strings"
)

type SearchOrder int32

const (
	SearchOrder_MostRecent   SearchOrder = iota // max(lastUseTime, modifyTime) descending
	SearchOrder_Alphabetical                    // by title, then subtitle
)

// HighlightSpan marks one matched fragment in a projected field, as a
// half-open rune range.
type HighlightSpan struct {
	Field string
	Start int
	End   int
}

// ItemSearchResult is a read-only projection over decrypted content. It is
// never persisted. Two results are duplicates only when both the item
// identity and the highlighted fragments match, so the same item matched
// differently stays listed twice.
type ItemSearchResult struct {
	ShareUid   string
	ItemUid    string
	Kind       ItemKind
	Title      string
	Subtitle   string
	Pinned     bool
	Highlights []HighlightSpan
	sortTime   int64
}

// dedupKey folds identity and the highlighted fragments together.
func (r *ItemSearchResult) dedupKey() string {
	var sb strings.Builder
	sb.WriteString(r.ShareUid)
	sb.WriteByte(0)
	sb.WriteString(r.ItemUid)
	for _, h := range r.Highlights {
		sb.WriteByte(0)
		sb.WriteString(fmt.Sprintf("%s:%d:%d", h.Field, h.Start, h.End))
	}
	return sb.String()
}

func (r *ItemSearchResult) Equal(other *ItemSearchResult) bool {
	if other == nil {
		return false
	}
	return r.dedupKey() == other.dedupKey()
}

func subtitleOf(content *ItemContent) string {
	switch content.Kind {
	case ItemKind_Login:
		return content.Login.Username
	case ItemKind_Alias:
		return content.Alias.AliasEmail
	case ItemKind_CreditCard:
		return content.CreditCard.CardholderName
	case ItemKind_Note:
		if i := strings.IndexByte(content.Note, '\n'); i >= 0 {
			return content.Note[:i]
		}
		return content.Note
	}
	return ""
}

// highlightField records case-insensitive non-overlapping matches as rune
// ranges into text. Matching runs over runes so offsets survive multi-byte
// characters.
func highlightField(field string, text string, query string) (spans []HighlightSpan) {
	if query == "" {
		return
	}
	var lowerText = []rune(strings.ToLower(text))
	var lowerQuery = []rune(strings.ToLower(query))
	if len(lowerQuery) == 0 {
		return
	}
	for i := 0; i+len(lowerQuery) <= len(lowerText); i++ {
		var match = true
		for j := range lowerQuery {
			if lowerText[i+j] != lowerQuery[j] {
				match = false
				break
			}
		}
		if match {
			spans = append(spans, HighlightSpan{
				Field: field,
				Start: i,
				End:   i + len(lowerQuery),
			})
			i += len(lowerQuery) - 1
		}
	}
	return
}

func maxInt64(a int64, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// SearchItems projects matching active items of the given shares (every share
// with cached items when shareUids is empty) through the callback, ordered per
// order.
// Corrupted or unreadable rows are reported in skipped and never fail the
// query.
func (v *Vault) SearchItems(shareUids []string, query string, order SearchOrder, cb func(*ItemSearchResult) bool) (skipped []error, err error) {
	if len(shareUids) == 0 {
		var uids = map[string]bool{}
		if err = v.vaultStorage.Items().GetAll(func(row IStorageItem) bool {
			if !uids[row.ShareUid()] {
				uids[row.ShareUid()] = true
				shareUids = append(shareUids, row.ShareUid())
			}
			return true
		}); err != nil {
			return
		}
		sort.Strings(shareUids)
	}

	var results []*ItemSearchResult
	var seen = map[string]bool{}
	for _, shareUid := range shareUids {
		var shareSkipped []error
		shareSkipped, err = v.GetItems(shareUid, func(item *ItemInfo) bool {
			if item.State == ItemState_Trashed {
				return true
			}
			var title = item.Content.Title
			var subtitle = subtitleOf(item.Content)
			var spans = highlightField("title", title, query)
			spans = append(spans, highlightField("subtitle", subtitle, query)...)
			if query != "" && len(spans) == 0 {
				return true
			}
			var result = &ItemSearchResult{
				ShareUid:   item.ShareUid,
				ItemUid:    item.ItemUid,
				Kind:       item.Content.Kind,
				Title:      title,
				Subtitle:   subtitle,
				Pinned:     item.Pinned,
				Highlights: spans,
				sortTime:   maxInt64(item.LastUseTime, item.ModifyTime),
			}
			var key = result.dedupKey()
			if !seen[key] {
				seen[key] = true
				results = append(results, result)
			}
			return true
		})
		skipped = append(skipped, shareSkipped...)
		if err != nil {
			return
		}
	}

	switch order {
	case SearchOrder_Alphabetical:
		sort.Slice(results, func(i, j int) bool {
			if results[i].Title != results[j].Title {
				return results[i].Title < results[j].Title
			}
			return results[i].Subtitle < results[j].Subtitle
		})
	default:
		sort.Slice(results, func(i, j int) bool {
			return results[i].sortTime > results[j].sortTime
		})
	}
	for _, result := range results {
		if !cb(result) {
			break
		}
	}
	return
}
