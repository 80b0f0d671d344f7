package vault

import (
	"context"
	"sort"
	"sync"

	"github.com/passvault/passvault-sdk-golang/api"
	"github.com/passvault/passvault-sdk-golang/auth"
	"github.com/passvault/passvault-sdk-golang/internal/database"
	"github.com/passvault/passvault-sdk-golang/storage"
	"go.uber.org/zap"
)

// Vault ties the session keyring, the encrypted local cache, the share key
// store and the remote store together. All plaintext produced here is
// transient; the cache only ever sees rows re-sealed under the session
// symmetric key.
type Vault struct {
	mutex        sync.Mutex
	keyring      auth.ISessionKeyring
	vaultStorage IVaultStorage
	keyStore     IShareKeyStore
	remote       IRemoteStore
}

func NewVault(keyring auth.ISessionKeyring, vaultStorage IVaultStorage, remote IRemoteStore) *Vault {
	return &Vault{
		keyring:      keyring,
		vaultStorage: vaultStorage,
		keyStore:     NewShareKeyStore(keyring, vaultStorage, remote),
		remote:       remote,
	}
}

func (v *Vault) Storage() IVaultStorage {
	return v.vaultStorage
}

func (v *Vault) KeyStore() IShareKeyStore {
	return v.keyStore
}

// sealLocal wraps plaintext for a cache row. The same domain tags used for
// share-key encryption separate item rows from share rows at rest.
func (v *Vault) sealLocal(data []byte, aad []byte) (sealed []byte, err error) {
	var symmetricKey []byte
	if symmetricKey, err = v.keyring.SymmetricKey(); err != nil {
		return
	}
	return api.EncryptAesGcm(data, symmetricKey, aad)
}

func (v *Vault) openLocal(data []byte, aad []byte) (plain []byte, err error) {
	var symmetricKey []byte
	if symmetricKey, err = v.keyring.SymmetricKey(); err != nil {
		return
	}
	return api.DecryptAesGcm(data, symmetricKey, aad)
}

// GetShare decrypts one cached share row. A row that cannot be opened is a
// CorruptedRecord, never a silent nil.
func (v *Vault) GetShare(shareUid string) (share *ShareInfo, err error) {
	var row IStorageShare
	if row, err = v.vaultStorage.Shares().GetEntity(shareUid); err != nil {
		return
	}
	if row == nil {
		return
	}
	return v.shareInfo(row)
}

// GetAllShares returns decrypted shares ordered by creation time, descending.
// Corrupted rows are skipped and returned separately so callers can report
// them.
func (v *Vault) GetAllShares() (shares []*ShareInfo, skipped []error, err error) {
	var logger = api.GetLogger()
	err = v.vaultStorage.Shares().GetAll(func(row IStorageShare) bool {
		var share *ShareInfo
		var rowErr error
		if share, rowErr = v.shareInfo(row); rowErr != nil {
			logger.Warn("Skipping share row", zap.String("shareUid", row.ShareUid()), zap.Error(rowErr))
			skipped = append(skipped, rowErr)
			return true
		}
		shares = append(shares, share)
		return true
	})
	if err != nil {
		shares = nil
		return
	}
	sort.Slice(shares, func(i, j int) bool {
		return shares[i].CreateTime > shares[j].CreateTime
	})
	return
}

func (v *Vault) shareInfo(row IStorageShare) (share *ShareInfo, err error) {
	var plain []byte
	if plain, err = v.openLocal(row.Data(), aadVaultContent); err != nil {
		if _, ok := err.(*api.KeyUnavailableError); ok {
			return
		}
		err = api.NewCorruptedRecordError(row.ShareUid(), "")
		return
	}
	var content *VaultContent
	if content, err = DecodeVaultContent(plain); err != nil {
		err = api.NewCorruptedRecordError(row.ShareUid(), "")
		return
	}
	share = &ShareInfo{
		ShareUid:    row.ShareUid(),
		Revision:    row.Revision(),
		Name:        content.Name,
		Description: content.Description,
		Owner:       row.Owner(),
		CreateTime:  row.CreateTime(),
		MemberCount: row.MemberCount(),
	}
	return
}

// GetItem decrypts one cached item row.
func (v *Vault) GetItem(shareUid string, itemUid string) (item *ItemInfo, err error) {
	var row IStorageItem
	if row, err = v.vaultStorage.Items().GetLink(shareUid, itemUid); err != nil {
		return
	}
	if row == nil {
		return
	}
	return v.itemInfo(row)
}

// GetItems streams decrypted items of a share. Rows failing decryption or
// carrying an unknown content format are reported in skipped and do not stop
// the listing.
func (v *Vault) GetItems(shareUid string, cb func(*ItemInfo) bool) (skipped []error, err error) {
	var logger = api.GetLogger()
	err = v.vaultStorage.Items().GetLinksForSubjects([]string{shareUid}, func(row IStorageItem) bool {
		var item *ItemInfo
		var rowErr error
		if item, rowErr = v.itemInfo(row); rowErr != nil {
			logger.Warn("Skipping item row",
				zap.String("shareUid", row.ShareUid()), zap.String("itemUid", row.ItemUid()), zap.Error(rowErr))
			skipped = append(skipped, rowErr)
			return true
		}
		return cb(item)
	})
	return
}

func (v *Vault) itemInfo(row IStorageItem) (item *ItemInfo, err error) {
	var plain []byte
	if plain, err = v.openLocal(row.EncryptedContent(), aadItemContent); err != nil {
		if _, ok := err.(*api.KeyUnavailableError); ok {
			return
		}
		err = api.NewCorruptedRecordError(row.ShareUid(), row.ItemUid())
		return
	}
	var content *ItemContent
	if content, err = DecodeItemContent(plain, row.ContentFormatVersion()); err != nil {
		if _, ok := err.(*api.UnsupportedFormatError); !ok {
			err = api.NewCorruptedRecordError(row.ShareUid(), row.ItemUid())
		}
		return
	}
	item = &ItemInfo{
		ShareUid:    row.ShareUid(),
		ItemUid:     row.ItemUid(),
		Revision:    row.Revision(),
		State:       ItemState(row.State()),
		Pinned:      row.Pinned(),
		CreateTime:  row.CreateTime(),
		ModifyTime:  row.ModifyTime(),
		LastUseTime: row.LastUseTime(),
		Content:     content,
	}
	return
}

// storeShare decrypts a remote share's metadata with its share key and
// re-seals it for the cache.
func (v *Vault) storeShare(ctx context.Context, remoteShare *RemoteShare) (err error) {
	var key *ShareKey
	if key, err = v.keyStore.KeyForRotation(ctx, remoteShare.ShareUid, remoteShare.KeyRotation); err != nil {
		return
	}
	var content *VaultContent
	if content, err = DecryptVaultContent(remoteShare.Content, key, remoteShare.ContentFormatVersion); err != nil {
		return
	}
	var encoded []byte
	if encoded, err = EncodeVaultContent(content); err != nil {
		return
	}
	var sealedData []byte
	if sealedData, err = v.sealLocal(encoded, aadVaultContent); err != nil {
		return
	}
	var sealedName []byte
	if sealedName, err = v.sealLocal([]byte(content.Name), aadVaultContent); err != nil {
		return
	}
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.vaultStorage.Shares().PutEntities([]IStorageShare{&database.ShareStorage{
		ShareUid_:    remoteShare.ShareUid,
		Revision_:    remoteShare.Revision,
		Name_:        sealedName,
		Data_:        sealedData,
		Owner_:       remoteShare.Owner,
		CreateTime_:  remoteShare.CreateTime,
		MemberCount_: remoteShare.MemberCount,
	}})
}

// storeItemRevisions decrypts each revision with the share key generation
// that sealed it and re-seals the content for the cache. The batch applies in
// one storage call. A revision at or below the cached row's revision is
// out of order delivery and never overwrites the fresher row.
func (v *Vault) storeItemRevisions(ctx context.Context, shareUid string, revisions []*RemoteItemRevision) (stored int, skipped []error, err error) {
	var logger = api.GetLogger()
	var localRevisions = make(map[string]int64)
	if err = v.vaultStorage.Items().GetLinksForSubjects([]string{shareUid}, func(row IStorageItem) bool {
		localRevisions[row.ItemUid()] = row.Revision()
		return true
	}); err != nil {
		return
	}
	var rows []IStorageItem
	for _, revision := range revisions {
		if localRevision, ok := localRevisions[revision.ItemUid]; ok && revision.Revision <= localRevision {
			logger.Debug("Ignoring out of order item revision",
				zap.String("shareUid", shareUid), zap.String("itemUid", revision.ItemUid),
				zap.Int64("revision", revision.Revision), zap.Int64("cachedRevision", localRevision))
			continue
		}
		var key *ShareKey
		if key, err = v.keyStore.KeyForRotation(ctx, shareUid, revision.KeyRotation); err != nil {
			return
		}
		var content *ItemContent
		var rowErr error
		if content, rowErr = DecryptItemContent(revision.Content, revision.ItemKey, key, revision.ContentFormatVersion); rowErr != nil {
			logger.Warn("Skipping item revision",
				zap.String("shareUid", shareUid), zap.String("itemUid", revision.ItemUid), zap.Error(rowErr))
			skipped = append(skipped, rowErr)
			continue
		}
		var encoded []byte
		if encoded, err = EncodeItemContent(content); err != nil {
			return
		}
		var sealed []byte
		if sealed, err = v.sealLocal(encoded, aadItemContent); err != nil {
			return
		}
		rows = append(rows, &database.ItemStorage{
			ShareUid_:             shareUid,
			ItemUid_:              revision.ItemUid,
			Revision_:             revision.Revision,
			ContentFormatVersion_: revision.ContentFormatVersion,
			KeyRotation_:          revision.KeyRotation,
			EncryptedContent_:     sealed,
			State_:                revision.State,
			AliasEmail_:           revision.AliasEmail,
			Pinned_:               revision.Pinned,
			IsLogInItem_:          content.Kind == ItemKind_Login,
			CreateTime_:           revision.CreateTime,
			ModifyTime_:           revision.ModifyTime,
			LastUseTime_:          revision.LastUseTime,
		})
	}
	if len(rows) > 0 {
		v.mutex.Lock()
		err = v.vaultStorage.Items().PutLinks(rows)
		v.mutex.Unlock()
		if err != nil {
			return
		}
	}
	stored = len(rows)
	return
}

func (v *Vault) removeItems(shareUid string, itemUids []string) (err error) {
	var links []storage.IUidLink[string, string]
	for _, itemUid := range itemUids {
		links = append(links, storage.NewUidLink(shareUid, itemUid))
	}
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.vaultStorage.Items().DeleteLinks(links)
}

// Clear wipes every cached row for this user.
func (v *Vault) Clear() {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.keyStore.Clear()
	v.vaultStorage.Clear()
}
