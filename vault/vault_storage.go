package vault

import (
	"github.com/passvault/passvault-sdk-golang/storage"
)

var (
	_ IVaultStorage = new(inMemoryVaultStorage)
)

// NewInMemoryVaultStorage keeps the cache in process memory. Rows are still
// expected to arrive encrypted; this backend is for tests and short-lived
// sessions without a database file.
func NewInMemoryVaultStorage(accountUid string) IVaultStorage {
	return &inMemoryVaultStorage{
		accountUid:   accountUid,
		userSettings: storage.NewInMemoryRecordStorage[IUserSettings](),
		shares: storage.NewInMemoryEntityStorage[IStorageShare, string](func(s IStorageShare) string {
			return s.Uid()
		}),
		shareKeys: storage.NewInMemoryLinkStorage[IStorageShareKey, string, int64](
			func(sk IStorageShareKey) string { return sk.SubjectUid() },
			func(sk IStorageShareKey) int64 { return sk.ObjectUid() }),
		items: storage.NewInMemoryLinkStorage[IStorageItem, string, string](
			func(i IStorageItem) string { return i.SubjectUid() },
			func(i IStorageItem) string { return i.ObjectUid() }),
		access: storage.NewInMemoryRecordStorage[IStorageAccess](),
	}
}

type inMemoryVaultStorage struct {
	accountUid   string
	userSettings storage.IRecordStorage[IUserSettings]
	shares       storage.IEntityStorage[IStorageShare, string]
	shareKeys    storage.ILinkStorage[IStorageShareKey, string, int64]
	items        storage.ILinkStorage[IStorageItem, string, string]
	access       storage.IRecordStorage[IStorageAccess]
}

func (mvs *inMemoryVaultStorage) PersonalScopeUid() string {
	return mvs.accountUid
}
func (mvs *inMemoryVaultStorage) UserSettings() storage.IRecordStorage[IUserSettings] {
	return mvs.userSettings
}
func (mvs *inMemoryVaultStorage) Shares() storage.IEntityStorage[IStorageShare, string] {
	return mvs.shares
}
func (mvs *inMemoryVaultStorage) ShareKeys() storage.ILinkStorage[IStorageShareKey, string, int64] {
	return mvs.shareKeys
}
func (mvs *inMemoryVaultStorage) Items() storage.ILinkStorage[IStorageItem, string, string] {
	return mvs.items
}
func (mvs *inMemoryVaultStorage) Access() storage.IRecordStorage[IStorageAccess] {
	return mvs.access
}

func (mvs *inMemoryVaultStorage) Clear() {
	_ = mvs.userSettings.Delete()
	_ = mvs.shares.Clear()
	_ = mvs.shareKeys.Clear()
	_ = mvs.items.Clear()
	_ = mvs.access.Delete()
}

func (mvs *inMemoryVaultStorage) Close() (err error) {
	return
}
