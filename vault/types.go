package vault

// ContentFormatVersion_Json is the only content format this client writes.
// Decryption dispatches on the stored version so newer formats fail with
// UnsupportedFormat instead of producing garbage.
const ContentFormatVersion_Json int32 = 1

type ItemState int32

const (
	ItemState_Active  ItemState = 1
	ItemState_Trashed ItemState = 2
)

type ItemKind int32

const (
	ItemKind_Login ItemKind = iota + 1
	ItemKind_Note
	ItemKind_Alias
	ItemKind_CreditCard
)

// ItemContent is the closed set of item payloads. Exactly one of the kind
// pointers is set, matching Kind.
type ItemContent struct {
	Kind       ItemKind           `json:"kind"`
	Title      string             `json:"title"`
	Note       string             `json:"note,omitempty"`
	Login      *LoginContent      `json:"login,omitempty"`
	Alias      *AliasContent      `json:"alias,omitempty"`
	CreditCard *CreditCardContent `json:"creditCard,omitempty"`
}

type LoginContent struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Urls     []string `json:"urls,omitempty"`
	TotpUri  string   `json:"totpUri,omitempty"`
}

type AliasContent struct {
	AliasEmail   string `json:"aliasEmail"`
	ForwardsTo   string `json:"forwardsTo,omitempty"`
	AliasEnabled bool   `json:"aliasEnabled"`
}

type CreditCardContent struct {
	CardholderName string `json:"cardholderName"`
	Number         string `json:"number"`
	ExpirationDate string `json:"expirationDate,omitempty"`
	SecurityCode   string `json:"securityCode,omitempty"`
}

// VaultContent is the share metadata payload, sealed in its own encryption
// domain so it can never be replayed as item content.
type VaultContent struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

// ShareKey is one decrypted generation of a share's symmetric key. Generations
// are append-only; the one with the highest KeyRotation seals new content,
// the older ones stay around for historical ciphertext.
type ShareKey struct {
	ShareUid    string
	KeyRotation int64
	Raw         []byte
	ValidSince  int64
}

// ShareInfo is a decrypted projection of a cached share row.
type ShareInfo struct {
	ShareUid    string
	Revision    int64
	Name        string
	Description string
	Owner       bool
	CreateTime  int64
	MemberCount int32
}

// ItemInfo is a decrypted projection of a cached item row. Content is only
// ever held in memory.
type ItemInfo struct {
	ShareUid    string
	ItemUid     string
	Revision    int64
	State       ItemState
	Pinned      bool
	CreateTime  int64
	ModifyTime  int64
	LastUseTime int64
	Content     *ItemContent
}
