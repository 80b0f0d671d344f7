package vault

import (
	"reflect"

	"github.com/passvault/passvault-sdk-golang/api"
	"github.com/passvault/passvault-sdk-golang/internal/database"
	"github.com/passvault/passvault-sdk-golang/sqlite"
	"github.com/passvault/passvault-sdk-golang/storage"
	"go.uber.org/zap"
)

var (
	_ IVaultStorage = new(sqliteVaultStorage)
)

func NewSqliteVaultStorage(getter sqlite.ConnectionGetter, accountUid string) (vaultStorage IVaultStorage, err error) {
	var db = getter()
	var sqliteStorage = &sqliteVaultStorage{
		userAccountUid: accountUid,
	}
	var entityType reflect.Type
	var tableSchema sqlite.ITableSchema

	// User Settings
	entityType = reflect.TypeOf((*database.UserSettingsStorage)(nil))
	if tableSchema, err = sqlite.LoadTableSchema(entityType, nil, nil, "user_uid", sqlite.SqlDataType_String); err != nil {
		return
	}
	if _, err = sqlite.VerifyDatabase(db, []sqlite.ITableSchema{tableSchema}, true); err != nil {
		return
	}
	if sqliteStorage.userSettings, err = sqlite.NewSqliteRecordStorage[IUserSettings](getter, tableSchema, accountUid); err != nil {
		return
	}

	// Shares
	entityType = reflect.TypeOf((*database.ShareStorage)(nil))
	if tableSchema, err = sqlite.LoadTableSchema(entityType, []string{"share_uid"}, nil, "user_uid", sqlite.SqlDataType_String); err != nil {
		return
	}
	if _, err = sqlite.VerifyDatabase(db, []sqlite.ITableSchema{tableSchema}, true); err != nil {
		return
	}
	if sqliteStorage.shares, err = sqlite.NewSqliteEntityStorage[IStorageShare, string](getter, tableSchema, accountUid); err != nil {
		return
	}

	// Share Keys
	entityType = reflect.TypeOf((*database.ShareKeyStorage)(nil))
	if tableSchema, err = sqlite.LoadTableSchema(entityType, []string{"share_uid", "key_rotation"},
		map[string][]string{"KeyRotation": {"key_rotation"}}, "user_uid", sqlite.SqlDataType_String); err != nil {
		return
	}
	if _, err = sqlite.VerifyDatabase(db, []sqlite.ITableSchema{tableSchema}, true); err != nil {
		return
	}
	if sqliteStorage.shareKeys, err = sqlite.NewSqliteLinkStorage[IStorageShareKey, string, int64](getter, tableSchema, accountUid); err != nil {
		return
	}

	// Items
	entityType = reflect.TypeOf((*database.ItemStorage)(nil))
	if tableSchema, err = sqlite.LoadTableSchema(entityType, []string{"share_uid", "item_uid"},
		map[string][]string{"ItemUID": {"item_uid"}}, "user_uid", sqlite.SqlDataType_String); err != nil {
		return
	}
	if _, err = sqlite.VerifyDatabase(db, []sqlite.ITableSchema{tableSchema}, true); err != nil {
		return
	}
	if sqliteStorage.items, err = sqlite.NewSqliteLinkStorage[IStorageItem, string, string](getter, tableSchema, accountUid); err != nil {
		return
	}

	// Access
	entityType = reflect.TypeOf((*database.AccessStorage)(nil))
	if tableSchema, err = sqlite.LoadTableSchema(entityType, nil, nil, "user_uid", sqlite.SqlDataType_String); err != nil {
		return
	}
	if _, err = sqlite.VerifyDatabase(db, []sqlite.ITableSchema{tableSchema}, true); err != nil {
		return
	}
	if sqliteStorage.access, err = sqlite.NewSqliteRecordStorage[IStorageAccess](getter, tableSchema, accountUid); err != nil {
		return
	}

	vaultStorage = sqliteStorage
	return
}

type sqliteVaultStorage struct {
	userAccountUid string
	userSettings   storage.IRecordStorage[IUserSettings]
	shares         storage.IEntityStorage[IStorageShare, string]
	shareKeys      storage.ILinkStorage[IStorageShareKey, string, int64]
	items          storage.ILinkStorage[IStorageItem, string, string]
	access         storage.IRecordStorage[IStorageAccess]
}

func (svs *sqliteVaultStorage) PersonalScopeUid() string {
	return svs.userAccountUid
}
func (svs *sqliteVaultStorage) UserSettings() storage.IRecordStorage[IUserSettings] {
	return svs.userSettings
}
func (svs *sqliteVaultStorage) Shares() storage.IEntityStorage[IStorageShare, string] {
	return svs.shares
}
func (svs *sqliteVaultStorage) ShareKeys() storage.ILinkStorage[IStorageShareKey, string, int64] {
	return svs.shareKeys
}
func (svs *sqliteVaultStorage) Items() storage.ILinkStorage[IStorageItem, string, string] {
	return svs.items
}
func (svs *sqliteVaultStorage) Access() storage.IRecordStorage[IStorageAccess] {
	return svs.access
}

func (svs *sqliteVaultStorage) Clear() {
	var err error
	var logger = api.GetLogger()
	if err = svs.userSettings.Delete(); err != nil {
		logger.Debug("Sqlite vault storage error", zap.String("Table", "UserSettings"), zap.Error(err))
	}
	if err = svs.shares.Clear(); err != nil {
		logger.Debug("Sqlite vault storage error", zap.String("Table", "Shares"), zap.Error(err))
	}
	if err = svs.shareKeys.Clear(); err != nil {
		logger.Debug("Sqlite vault storage error", zap.String("Table", "ShareKeys"), zap.Error(err))
	}
	if err = svs.items.Clear(); err != nil {
		logger.Debug("Sqlite vault storage error", zap.String("Table", "Items"), zap.Error(err))
	}
	if err = svs.access.Delete(); err != nil {
		logger.Debug("Sqlite vault storage error", zap.String("Table", "Access"), zap.Error(err))
	}
}

func (svs *sqliteVaultStorage) Close() (err error) {
	return
}
