package vault

import (
	"context"
)

type RemoteKeyType int32

const (
	RemoteKeyType_SessionKey_AES_GCM RemoteKeyType = 1 // AES GCM: wrapped under the session symmetric key
	RemoteKeyType_User_RSA           RemoteKeyType = 2 // RSA: wrapped for the user RSA key
	RemoteKeyType_User_EC            RemoteKeyType = 3 // EC: wrapped for the user EC key
)

// RemoteShareKey is one server-issued share key generation, still wrapped for
// this user.
type RemoteShareKey struct {
	ShareUid     string
	KeyRotation  int64
	KeyType      RemoteKeyType
	EncryptedKey []byte
	ValidSince   int64
}

type ShareKeysResponse struct {
	VaultKeys []*RemoteShareKey
	ItemKeys  []*RemoteShareKey
	Total     int32
}

type RemoteShare struct {
	ShareUid             string
	Revision             int64
	KeyRotation          int64
	ContentFormatVersion int32
	Content              []byte // sealed VaultContent
	Owner                bool
	CreateTime           int64
	MemberCount          int32
}

// RemoteItemRevision is the server's authoritative view of one item. Content
// is sealed under the share key generation named by KeyRotation; when ItemKey
// is present the content is sealed under that per-item key instead, and the
// item key is wrapped by the share key.
type RemoteItemRevision struct {
	ItemUid              string
	Revision             int64
	ContentFormatVersion int32
	KeyRotation          int64
	Content              []byte
	ItemKey              []byte
	State                int32
	AliasEmail           string
	Pinned               bool
	CreateTime           int64
	ModifyTime           int64
	LastUseTime          int64
}

type ItemRevisionsPage struct {
	Total     int64
	Revisions []*RemoteItemRevision
}

// UpdateRequest couples a write to the revision the client last observed.
type UpdateRequest struct {
	KeyRotation          int64
	LastRevision         int64
	Content              []byte
	ContentFormatVersion int32
}

type CreateItemRequest struct {
	KeyRotation          int64
	Content              []byte
	ContentFormatVersion int32
}

type CreateVaultRequest struct {
	Content              []byte
	ContentFormatVersion int32
	EncryptedVaultKey    []byte
	KeyType              RemoteKeyType
}

type UpdateVaultRequest struct {
	KeyRotation          int64
	LastRevision         int64
	Content              []byte
	ContentFormatVersion int32
}

type RemoteAccess struct {
	VaultLimit int64
	AliasLimit int64
	TotpLimit  int64
	TrialEnd   int64
}

// IRemoteStore is the transport collaborator. Implementations attach
// authentication and own wire-level timeouts; the engine treats every failure
// from these methods as RemoteUnavailable unless it is one of the typed api
// errors.
type IRemoteStore interface {
	GetShares(ctx context.Context) ([]*RemoteShare, error)
	GetShareKeys(ctx context.Context, shareUid string) (*ShareKeysResponse, error)
	GetItemRevisions(ctx context.Context, shareUid string, page int, pageSize int) (*ItemRevisionsPage, error)
	GetItemRevision(ctx context.Context, shareUid string, itemUid string) (*RemoteItemRevision, error)

	CreateItem(ctx context.Context, shareUid string, request *CreateItemRequest) (*RemoteItemRevision, error)
	UpdateItem(ctx context.Context, shareUid string, itemUid string, request *UpdateRequest) (*RemoteItemRevision, error)
	TrashItem(ctx context.Context, shareUid string, itemUid string, lastRevision int64) (*RemoteItemRevision, error)
	DeleteItem(ctx context.Context, shareUid string, itemUid string) error
	PinItem(ctx context.Context, shareUid string, itemUid string) error
	UnpinItem(ctx context.Context, shareUid string, itemUid string) error

	CreateVault(ctx context.Context, request *CreateVaultRequest) (*RemoteShare, error)
	UpdateVault(ctx context.Context, shareUid string, request *UpdateVaultRequest) error
	TransferOwnership(ctx context.Context, shareUid string, newOwnerShareUid string) error
	DeleteUserShare(ctx context.Context, shareUid string, userUid string) error
	RotateShareKey(ctx context.Context, shareUid string) (*RemoteShareKey, error)

	GetAccess(ctx context.Context) (*RemoteAccess, error)
}
