package vault

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/passvault/passvault-sdk-golang/api"
	"github.com/passvault/passvault-sdk-golang/auth"
	"github.com/passvault/passvault-sdk-golang/internal/database"
	"go.uber.org/zap"
)

// SelectLatestKey picks the authoritative key for new encryptions: strictly
// the highest KeyRotation, never insertion order or timestamp. An empty
// collection fails with MissingKeys.
func SelectLatestKey(keys []*ShareKey, shareUid string) (latest *ShareKey, err error) {
	if len(keys) == 0 {
		err = api.NewMissingKeysError(shareUid)
		return
	}
	var sorted = make([]*ShareKey, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].KeyRotation < sorted[j].KeyRotation
	})
	latest = sorted[len(sorted)-1]
	return
}

// IShareKeyStore manages per-share key generations. Generations are
// append-only: rotation issues a new key, history is never replaced, so every
// historical revision stays decryptable.
type IShareKeyStore interface {
	LatestKey(ctx context.Context, shareUid string) (*ShareKey, error)
	KeyForRotation(ctx context.Context, shareUid string, keyRotation int64) (*ShareKey, error)
	RotateKey(ctx context.Context, shareUid string) (*ShareKey, error)
	AddKeys(shareUid string, keys []*ShareKey) error
	Clear()
}

func NewShareKeyStore(keyring auth.ISessionKeyring, vaultStorage IVaultStorage, remote IRemoteStore) IShareKeyStore {
	return &shareKeyStore{
		keyring:      keyring,
		vaultStorage: vaultStorage,
		remote:       remote,
		cache:        make(map[string]map[int64]*ShareKey),
	}
}

type shareKeyStore struct {
	mutex        sync.RWMutex
	keyring      auth.ISessionKeyring
	vaultStorage IVaultStorage
	remote       IRemoteStore
	cache        map[string]map[int64]*ShareKey
}

func (sks *shareKeyStore) LatestKey(ctx context.Context, shareUid string) (key *ShareKey, err error) {
	var keys []*ShareKey
	if keys, err = sks.shareKeys(ctx, shareUid); err != nil {
		return
	}
	return SelectLatestKey(keys, shareUid)
}

func (sks *shareKeyStore) KeyForRotation(ctx context.Context, shareUid string, keyRotation int64) (key *ShareKey, err error) {
	sks.mutex.RLock()
	key = sks.cache[shareUid][keyRotation]
	sks.mutex.RUnlock()
	if key != nil {
		return
	}
	var keys []*ShareKey
	if keys, err = sks.shareKeys(ctx, shareUid); err != nil {
		return
	}
	if key = keyWithRotation(keys, keyRotation); key != nil {
		return
	}
	// a warm cache can still miss a generation issued after the last fetch
	if keys, err = sks.fetchRemoteKeys(ctx, shareUid); err != nil {
		return
	}
	if key = keyWithRotation(keys, keyRotation); key != nil {
		return
	}
	err = api.NewMissingKeysError(shareUid)
	return
}

func keyWithRotation(keys []*ShareKey, keyRotation int64) *ShareKey {
	for _, key := range keys {
		if key.KeyRotation == keyRotation {
			return key
		}
	}
	return nil
}

func (sks *shareKeyStore) RotateKey(ctx context.Context, shareUid string) (key *ShareKey, err error) {
	var remoteKey *RemoteShareKey
	if remoteKey, err = sks.remote.RotateShareKey(ctx, shareUid); err != nil {
		err = api.NewRemoteUnavailableError(err)
		return
	}
	if key, err = sks.unwrapRemoteKey(shareUid, remoteKey); err != nil {
		return
	}
	if err = sks.AddKeys(shareUid, []*ShareKey{key}); err != nil {
		key = nil
	}
	return
}

// AddKeys wraps decrypted generations under the session symmetric key and
// persists them, then adds them to the in-memory cache.
func (sks *shareKeyStore) AddKeys(shareUid string, keys []*ShareKey) (err error) {
	var symmetricKey []byte
	if symmetricKey, err = sks.keyring.SymmetricKey(); err != nil {
		return
	}
	var rows []IStorageShareKey
	for _, key := range keys {
		var wrapped []byte
		if wrapped, err = api.EncryptAesGcm(key.Raw, symmetricKey, nil); err != nil {
			return
		}
		rows = append(rows, &database.ShareKeyStorage{
			ShareUid_:     shareUid,
			KeyRotation_:  key.KeyRotation,
			EncryptedKey_: wrapped,
			ValidSince_:   key.ValidSince,
		})
	}
	if err = sks.vaultStorage.ShareKeys().PutLinks(rows); err != nil {
		return
	}
	sks.mutex.Lock()
	defer sks.mutex.Unlock()
	var byRotation = sks.cache[shareUid]
	if byRotation == nil {
		byRotation = make(map[int64]*ShareKey)
		sks.cache[shareUid] = byRotation
	}
	for _, key := range keys {
		byRotation[key.KeyRotation] = key
	}
	return
}

func (sks *shareKeyStore) Clear() {
	sks.mutex.Lock()
	defer sks.mutex.Unlock()
	sks.cache = make(map[string]map[int64]*ShareKey)
}

// shareKeys returns all known generations for a share: in-memory cache first,
// then the encrypted local rows, then the remote store.
func (sks *shareKeyStore) shareKeys(ctx context.Context, shareUid string) (keys []*ShareKey, err error) {
	sks.mutex.RLock()
	for _, key := range sks.cache[shareUid] {
		keys = append(keys, key)
	}
	sks.mutex.RUnlock()
	if len(keys) > 0 {
		return
	}
	if keys, err = sks.loadLocalKeys(shareUid); err != nil {
		return
	}
	if len(keys) == 0 {
		if keys, err = sks.fetchRemoteKeys(ctx, shareUid); err != nil {
			return
		}
	} else {
		sks.mutex.Lock()
		var byRotation = sks.cache[shareUid]
		if byRotation == nil {
			byRotation = make(map[int64]*ShareKey)
			sks.cache[shareUid] = byRotation
		}
		for _, key := range keys {
			byRotation[key.KeyRotation] = key
		}
		sks.mutex.Unlock()
	}
	return
}

func (sks *shareKeyStore) loadLocalKeys(shareUid string) (keys []*ShareKey, err error) {
	var symmetricKey []byte
	if symmetricKey, err = sks.keyring.SymmetricKey(); err != nil {
		return
	}
	var logger = api.GetLogger()
	var rowErr error
	err = sks.vaultStorage.ShareKeys().GetLinksForSubjects([]string{shareUid}, func(row IStorageShareKey) bool {
		var raw []byte
		if raw, rowErr = api.DecryptAesGcm(row.EncryptedKey(), symmetricKey, nil); rowErr != nil {
			logger.Warn("Corrupted share key row",
				zap.String("shareUid", shareUid), zap.Int64("keyRotation", row.KeyRotation()))
			rowErr = nil
			return true
		}
		keys = append(keys, &ShareKey{
			ShareUid:    shareUid,
			KeyRotation: row.KeyRotation(),
			Raw:         raw,
			ValidSince:  row.ValidSince(),
		})
		return true
	})
	if err != nil {
		keys = nil
	}
	return
}

func (sks *shareKeyStore) fetchRemoteKeys(ctx context.Context, shareUid string) (keys []*ShareKey, err error) {
	var response *ShareKeysResponse
	if response, err = sks.remote.GetShareKeys(ctx, shareUid); err != nil {
		err = api.NewRemoteUnavailableError(err)
		return
	}
	var remoteKeys []*RemoteShareKey
	remoteKeys = append(remoteKeys, response.VaultKeys...)
	remoteKeys = append(remoteKeys, response.ItemKeys...)
	var seen = api.NewSet[int64]()
	for _, remoteKey := range remoteKeys {
		if seen.Has(remoteKey.KeyRotation) {
			continue
		}
		seen.Add(remoteKey.KeyRotation)
		var key *ShareKey
		if key, err = sks.unwrapRemoteKey(shareUid, remoteKey); err != nil {
			keys = nil
			return
		}
		keys = append(keys, key)
	}
	if len(keys) > 0 {
		if err = sks.AddKeys(shareUid, keys); err != nil {
			keys = nil
		}
	}
	return
}

func (sks *shareKeyStore) unwrapRemoteKey(shareUid string, remoteKey *RemoteShareKey) (key *ShareKey, err error) {
	var raw []byte
	switch remoteKey.KeyType {
	case RemoteKeyType_SessionKey_AES_GCM:
		var symmetricKey []byte
		if symmetricKey, err = sks.keyring.SymmetricKey(); err != nil {
			return
		}
		raw, err = api.DecryptAesGcm(remoteKey.EncryptedKey, symmetricKey, nil)
	case RemoteKeyType_User_RSA:
		var privateKey = sks.keyring.RsaPrivateKey()
		if privateKey == nil {
			err = api.NewKeyUnavailableError()
			return
		}
		raw, err = api.DecryptRsa(remoteKey.EncryptedKey, privateKey)
	case RemoteKeyType_User_EC:
		var privateKey = sks.keyring.EcPrivateKey()
		if privateKey == nil {
			err = api.NewKeyUnavailableError()
			return
		}
		raw, err = api.DecryptEc(remoteKey.EncryptedKey, privateKey)
	default:
		err = api.NewVaultError(fmt.Sprintf("share key: unsupported key type: %d", remoteKey.KeyType))
		return
	}
	if err != nil {
		return
	}
	key = &ShareKey{
		ShareUid:    shareUid,
		KeyRotation: remoteKey.KeyRotation,
		Raw:         raw,
		ValidSince:  remoteKey.ValidSince,
	}
	return
}
