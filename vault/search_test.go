package vault

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/passvault/passvault-sdk-golang/api"
	"github.com/passvault/passvault-sdk-golang/internal/database"
	"gotest.tools/assert"
)

func TestSearchResultEquality(t *testing.T) {
	var a = &ItemSearchResult{
		ShareUid:   "share-1",
		ItemUid:    "item-1",
		Highlights: []HighlightSpan{{Field: "title", Start: 0, End: 4}},
	}
	var b = &ItemSearchResult{
		ShareUid:   "share-1",
		ItemUid:    "item-1",
		Highlights: []HighlightSpan{{Field: "title", Start: 0, End: 4}},
	}
	assert.Assert(t, a.Equal(b))

	// same item, different match: not a duplicate
	var c = &ItemSearchResult{
		ShareUid:   "share-1",
		ItemUid:    "item-1",
		Highlights: []HighlightSpan{{Field: "subtitle", Start: 2, End: 6}},
	}
	assert.Assert(t, !a.Equal(c))
	assert.Assert(t, !a.Equal(nil))
}

func TestSearchOrderingAndHighlights(t *testing.T) {
	var tv = newTestVault(t)
	var keys = tv.addShare(t, "share-1", "Personal", 1)
	var key = keys[1]
	var ctx = context.Background()
	var engine = NewSyncEngine(tv.vault, testSyncOptions())

	tv.addRemoteItem(t, "share-1", "item-1", key, 1, "Bank account")
	tv.addRemoteItem(t, "share-1", "item-2", key, 2, "Bank card")
	tv.addRemoteItem(t, "share-1", "item-3", key, 3, "Email")
	var _, err = engine.SyncShare(ctx, "share-1")
	assert.NilError(t, err)

	var results []*ItemSearchResult
	var skipped []error
	skipped, err = tv.vault.SearchItems(nil, "bank", SearchOrder_Alphabetical, func(r *ItemSearchResult) bool {
		results = append(results, r)
		return true
	})
	assert.NilError(t, err)
	assert.Equal(t, len(skipped), 0)
	assert.Equal(t, len(results), 2)
	assert.Equal(t, results[0].Title, "Bank account")
	assert.Equal(t, results[1].Title, "Bank card")
	assert.Equal(t, len(results[0].Highlights), 1)
	assert.Equal(t, results[0].Highlights[0].Field, "title")
	assert.Equal(t, results[0].Highlights[0].Start, 0)
	assert.Equal(t, results[0].Highlights[0].End, 4)
}

func TestSearchMostRecentOrder(t *testing.T) {
	var tv = newTestVault(t)
	var keys = tv.addShare(t, "share-1", "Personal", 1)
	var key = keys[1]
	var engine = NewSyncEngine(tv.vault, testSyncOptions())

	tv.addRemoteItem(t, "share-1", "item-old", key, 1, "Old")
	tv.addRemoteItem(t, "share-1", "item-new", key, 2, "New")
	tv.remote.mutex.Lock()
	tv.remote.items["share-1"]["item-old"].ModifyTime = 1000
	tv.remote.items["share-1"]["item-old"].LastUseTime = 5000
	tv.remote.items["share-1"]["item-new"].ModifyTime = 3000
	tv.remote.items["share-1"]["item-new"].LastUseTime = 0
	tv.remote.mutex.Unlock()
	var _, err = engine.SyncShare(context.Background(), "share-1")
	assert.NilError(t, err)

	// lastUseTime beats modifyTime when larger
	var titles []string
	_, err = tv.vault.SearchItems(nil, "", SearchOrder_MostRecent, func(r *ItemSearchResult) bool {
		titles = append(titles, r.Title)
		return true
	})
	assert.NilError(t, err)
	assert.DeepEqual(t, titles, []string{"Old", "New"})
}

func TestHighlightSpansAreRuneRanges(t *testing.T) {
	// offsets count runes, not bytes, so a multi-byte prefix does not shift them
	var spans = highlightField("title", "Übergang Bank", "bank")
	assert.Equal(t, len(spans), 1)
	assert.Equal(t, spans[0].Start, 9)
	assert.Equal(t, spans[0].End, 13)

	// case folding of non-ASCII query text keeps span lengths in runes
	spans = highlightField("title", "CAFÉ login", "café")
	assert.Equal(t, len(spans), 1)
	assert.Equal(t, spans[0].Start, 0)
	assert.Equal(t, spans[0].End, 4)

	spans = highlightField("title", "aaa", "aa")
	assert.Equal(t, len(spans), 1)
	assert.Equal(t, spans[0].End, 2)
}

func TestSearchSkipsTrashedItems(t *testing.T) {
	var tv = newTestVault(t)
	var keys = tv.addShare(t, "share-1", "Personal", 1)
	var key = keys[1]
	var ctx = context.Background()
	var engine = NewSyncEngine(tv.vault, testSyncOptions())

	tv.addRemoteItem(t, "share-1", "item-1", key, 1, "Keep")
	tv.addRemoteItem(t, "share-1", "item-2", key, 2, "Gone")
	var _, err = engine.SyncShare(ctx, "share-1")
	assert.NilError(t, err)
	assert.NilError(t, tv.vault.TrashItem(ctx, "share-1", "item-2"))

	var cnt = 0
	_, err = tv.vault.SearchItems(nil, "", SearchOrder_MostRecent, func(r *ItemSearchResult) bool {
		cnt++
		return true
	})
	assert.NilError(t, err)
	assert.Equal(t, cnt, 1)
}

func TestCorruptionIsolation(t *testing.T) {
	var tv = newTestVault(t)
	var keys = tv.addShare(t, "share-1", "Personal", 1)
	var key = keys[1]
	var ctx = context.Background()
	var engine = NewSyncEngine(tv.vault, testSyncOptions())

	for i := 0; i < 10; i++ {
		tv.addRemoteItem(t, "share-1", fmt.Sprintf("item-%d", i), key, int64(i+1), fmt.Sprintf("Item %d", i))
	}
	var result, err = engine.SyncShare(ctx, "share-1")
	assert.NilError(t, err)
	assert.Equal(t, result.Inserted, 10)

	// damage one row at rest
	var row IStorageItem
	row, err = tv.vault.Storage().Items().GetLink("share-1", "item-4")
	assert.NilError(t, err)
	var damaged = *(row.(*database.ItemStorage))
	damaged.EncryptedContent_ = api.GetRandomBytes(64)
	assert.NilError(t, tv.vault.Storage().Items().PutLinks([]IStorageItem{&damaged}))

	var results = 0
	var skipped []error
	skipped, err = tv.vault.SearchItems(nil, "", SearchOrder_MostRecent, func(r *ItemSearchResult) bool {
		results++
		return true
	})
	assert.NilError(t, err)
	assert.Equal(t, results, 9)
	assert.Equal(t, len(skipped), 1)
	var corruptedErr *api.CorruptedRecordError
	assert.Assert(t, errors.As(skipped[0], &corruptedErr))
	assert.Equal(t, corruptedErr.ItemUid(), "item-4")
}
