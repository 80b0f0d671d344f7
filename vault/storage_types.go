package vault

import (
	"io"

	"github.com/passvault/passvault-sdk-golang/internal/database"
	"github.com/passvault/passvault-sdk-golang/storage"
)

var (
	_ IStorageShare    = &database.ShareStorage{}
	_ IStorageShareKey = &database.ShareKeyStorage{}
	_ IStorageItem     = &database.ItemStorage{}
	_ IStorageAccess   = &database.AccessStorage{}
	_ IUserSettings    = &database.UserSettingsStorage{}
)

type IUserSettings interface {
	Email() string
	ProfileName() string
	LastSyncTime() int64
	SetEmail(string)
	SetProfileName(string)
	SetLastSyncTime(int64)
}

type IStorageShare interface {
	ShareUid() string
	Revision() int64
	Name() []byte
	Data() []byte
	Owner() bool
	CreateTime() int64
	MemberCount() int32
	storage.IUid[string]
}

type IStorageShareKey interface {
	ShareUid() string
	KeyRotation() int64
	EncryptedKey() []byte
	ValidSince() int64
	storage.IUidLink[string, int64]
}

type IStorageItem interface {
	ShareUid() string
	ItemUid() string
	Revision() int64
	ContentFormatVersion() int32
	KeyRotation() int64
	EncryptedContent() []byte
	State() int32
	AliasEmail() string
	Pinned() bool
	IsLogInItem() bool
	CreateTime() int64
	ModifyTime() int64
	LastUseTime() int64
	storage.IUidLink[string, string]
}

type IStorageAccess interface {
	VaultLimit() int64
	AliasLimit() int64
	TotpLimit() int64
	TrialEnd() int64
}

// IVaultStorage is the encrypted local cache. Every row is scoped to
// PersonalScopeUid and every payload column is sealed under the session
// symmetric key before it reaches a storage.
type IVaultStorage interface {
	PersonalScopeUid() string
	UserSettings() storage.IRecordStorage[IUserSettings]
	Shares() storage.IEntityStorage[IStorageShare, string]
	ShareKeys() storage.ILinkStorage[IStorageShareKey, string, int64]
	Items() storage.ILinkStorage[IStorageItem, string, string]
	Access() storage.IRecordStorage[IStorageAccess]

	Clear()
	io.Closer
}
