package vault

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/passvault/passvault-sdk-golang/api"
	"github.com/passvault/passvault-sdk-golang/auth"
	"gotest.tools/assert"
)

type fakeRemote struct {
	mutex                sync.Mutex
	shares               map[string]*RemoteShare
	keys                 map[string][]*RemoteShareKey
	items                map[string]map[string]*RemoteItemRevision
	access               *RemoteAccess
	revisionCounter      int64
	getShareKeysCalls    int
	getItemRevisionCalls int
	failures             int
	alwaysStale          bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		shares: make(map[string]*RemoteShare),
		keys:   make(map[string][]*RemoteShareKey),
		items:  make(map[string]map[string]*RemoteItemRevision),
		access: &RemoteAccess{VaultLimit: 2, AliasLimit: -1, TotpLimit: -1, TrialEnd: -1},
	}
}

func (fr *fakeRemote) failOnce() error {
	if fr.failures > 0 {
		fr.failures--
		return fmt.Errorf("transport: connection reset")
	}
	return nil
}

func (fr *fakeRemote) nextRevision() int64 {
	fr.revisionCounter++
	return fr.revisionCounter
}

func (fr *fakeRemote) GetShares(ctx context.Context) (shares []*RemoteShare, err error) {
	fr.mutex.Lock()
	defer fr.mutex.Unlock()
	if err = fr.failOnce(); err != nil {
		return
	}
	for _, share := range fr.shares {
		shares = append(shares, share)
	}
	return
}

func (fr *fakeRemote) GetShareKeys(ctx context.Context, shareUid string) (*ShareKeysResponse, error) {
	fr.mutex.Lock()
	defer fr.mutex.Unlock()
	if err := fr.failOnce(); err != nil {
		return nil, err
	}
	fr.getShareKeysCalls++
	var keys = fr.keys[shareUid]
	return &ShareKeysResponse{
		VaultKeys: keys,
		Total:     int32(len(keys)),
	}, nil
}

func (fr *fakeRemote) GetItemRevisions(ctx context.Context, shareUid string, page int, pageSize int) (*ItemRevisionsPage, error) {
	fr.mutex.Lock()
	defer fr.mutex.Unlock()
	if err := fr.failOnce(); err != nil {
		return nil, err
	}
	var all []*RemoteItemRevision
	for _, revision := range fr.items[shareUid] {
		all = append(all, revision)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ItemUid < all[j].ItemUid
	})
	var start = page * pageSize
	var end = start + pageSize
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}
	return &ItemRevisionsPage{
		Total:     int64(len(all)),
		Revisions: all[start:end],
	}, nil
}

func (fr *fakeRemote) GetItemRevision(ctx context.Context, shareUid string, itemUid string) (*RemoteItemRevision, error) {
	fr.mutex.Lock()
	defer fr.mutex.Unlock()
	fr.getItemRevisionCalls++
	var revision = fr.items[shareUid][itemUid]
	if revision == nil {
		return nil, fmt.Errorf("item not found: %s", itemUid)
	}
	return revision, nil
}

func (fr *fakeRemote) CreateItem(ctx context.Context, shareUid string, request *CreateItemRequest) (*RemoteItemRevision, error) {
	fr.mutex.Lock()
	defer fr.mutex.Unlock()
	var now = time.Now().UnixMilli()
	var revision = &RemoteItemRevision{
		ItemUid:              api.Base64UrlEncode(api.GenerateUid()),
		Revision:             fr.nextRevision(),
		ContentFormatVersion: request.ContentFormatVersion,
		KeyRotation:          request.KeyRotation,
		Content:              request.Content,
		State:                int32(ItemState_Active),
		CreateTime:           now,
		ModifyTime:           now,
	}
	if fr.items[shareUid] == nil {
		fr.items[shareUid] = make(map[string]*RemoteItemRevision)
	}
	fr.items[shareUid][revision.ItemUid] = revision
	return revision, nil
}

func (fr *fakeRemote) UpdateItem(ctx context.Context, shareUid string, itemUid string, request *UpdateRequest) (*RemoteItemRevision, error) {
	fr.mutex.Lock()
	defer fr.mutex.Unlock()
	var current = fr.items[shareUid][itemUid]
	if current == nil {
		return nil, fmt.Errorf("item not found: %s", itemUid)
	}
	if fr.alwaysStale || request.LastRevision != current.Revision {
		return nil, api.NewStaleRevisionError(shareUid, itemUid, request.LastRevision)
	}
	var updated = *current
	updated.Revision = fr.nextRevision()
	updated.ContentFormatVersion = request.ContentFormatVersion
	updated.KeyRotation = request.KeyRotation
	updated.Content = request.Content
	updated.ItemKey = nil
	updated.ModifyTime = time.Now().UnixMilli()
	fr.items[shareUid][itemUid] = &updated
	return &updated, nil
}

func (fr *fakeRemote) TrashItem(ctx context.Context, shareUid string, itemUid string, lastRevision int64) (*RemoteItemRevision, error) {
	fr.mutex.Lock()
	defer fr.mutex.Unlock()
	var current = fr.items[shareUid][itemUid]
	if current == nil {
		return nil, fmt.Errorf("item not found: %s", itemUid)
	}
	if fr.alwaysStale || lastRevision != current.Revision {
		return nil, api.NewStaleRevisionError(shareUid, itemUid, lastRevision)
	}
	var updated = *current
	updated.Revision = fr.nextRevision()
	updated.State = int32(ItemState_Trashed)
	fr.items[shareUid][itemUid] = &updated
	return &updated, nil
}

func (fr *fakeRemote) DeleteItem(ctx context.Context, shareUid string, itemUid string) error {
	fr.mutex.Lock()
	defer fr.mutex.Unlock()
	delete(fr.items[shareUid], itemUid)
	return nil
}

func (fr *fakeRemote) PinItem(ctx context.Context, shareUid string, itemUid string) error {
	return fr.setPinned(shareUid, itemUid, true)
}

func (fr *fakeRemote) UnpinItem(ctx context.Context, shareUid string, itemUid string) error {
	return fr.setPinned(shareUid, itemUid, false)
}

func (fr *fakeRemote) setPinned(shareUid string, itemUid string, pinned bool) error {
	fr.mutex.Lock()
	defer fr.mutex.Unlock()
	var current = fr.items[shareUid][itemUid]
	if current == nil {
		return fmt.Errorf("item not found: %s", itemUid)
	}
	var updated = *current
	updated.Revision = fr.nextRevision()
	updated.Pinned = pinned
	fr.items[shareUid][itemUid] = &updated
	return nil
}

func (fr *fakeRemote) CreateVault(ctx context.Context, request *CreateVaultRequest) (*RemoteShare, error) {
	fr.mutex.Lock()
	defer fr.mutex.Unlock()
	var share = &RemoteShare{
		ShareUid:             api.Base64UrlEncode(api.GenerateUid()),
		Revision:             fr.nextRevision(),
		KeyRotation:          1,
		ContentFormatVersion: request.ContentFormatVersion,
		Content:              request.Content,
		Owner:                true,
		CreateTime:           time.Now().UnixMilli(),
		MemberCount:          1,
	}
	fr.shares[share.ShareUid] = share
	fr.keys[share.ShareUid] = []*RemoteShareKey{{
		ShareUid:     share.ShareUid,
		KeyRotation:  1,
		KeyType:      request.KeyType,
		EncryptedKey: request.EncryptedVaultKey,
	}}
	return share, nil
}

func (fr *fakeRemote) UpdateVault(ctx context.Context, shareUid string, request *UpdateVaultRequest) error {
	fr.mutex.Lock()
	defer fr.mutex.Unlock()
	var share = fr.shares[shareUid]
	if share == nil {
		return fmt.Errorf("share not found: %s", shareUid)
	}
	var updated = *share
	updated.Revision = fr.nextRevision()
	updated.KeyRotation = request.KeyRotation
	updated.Content = request.Content
	fr.shares[shareUid] = &updated
	return nil
}

func (fr *fakeRemote) TransferOwnership(ctx context.Context, shareUid string, newOwnerShareUid string) error {
	return nil
}

func (fr *fakeRemote) DeleteUserShare(ctx context.Context, shareUid string, userUid string) error {
	return nil
}

func (fr *fakeRemote) RotateShareKey(ctx context.Context, shareUid string) (*RemoteShareKey, error) {
	return nil, fmt.Errorf("rotation not configured")
}

func (fr *fakeRemote) GetAccess(ctx context.Context) (*RemoteAccess, error) {
	fr.mutex.Lock()
	defer fr.mutex.Unlock()
	return fr.access, nil
}

var _ IRemoteStore = new(fakeRemote)

type testVault struct {
	vault   *Vault
	keyring auth.ISessionKeyring
	remote  *fakeRemote
}

func newTestVault(t *testing.T) *testVault {
	var keyring, err = auth.NewSessionKeyring(api.GetRandomBytes(32), api.GetRandomBytes(16), nil)
	assert.NilError(t, err)
	var remote = newFakeRemote()
	return &testVault{
		vault:   NewVault(keyring, NewInMemoryVaultStorage("user-1"), remote),
		keyring: keyring,
		remote:  remote,
	}
}

// addShare registers a share with one key generation wrapped under the
// session symmetric key and returns the decrypted key.
func (tv *testVault) addShare(t *testing.T, shareUid string, name string, rotations ...int64) map[int64]*ShareKey {
	var symmetricKey, err = tv.keyring.SymmetricKey()
	assert.NilError(t, err)
	if len(rotations) == 0 {
		rotations = []int64{1}
	}
	var keys = make(map[int64]*ShareKey)
	var remoteKeys []*RemoteShareKey
	for _, rotation := range rotations {
		var key = &ShareKey{
			ShareUid:    shareUid,
			KeyRotation: rotation,
			Raw:         api.GenerateAesKey(),
		}
		keys[rotation] = key
		var wrapped []byte
		wrapped, err = api.EncryptAesGcm(key.Raw, symmetricKey, nil)
		assert.NilError(t, err)
		remoteKeys = append(remoteKeys, &RemoteShareKey{
			ShareUid:     shareUid,
			KeyRotation:  rotation,
			KeyType:      RemoteKeyType_SessionKey_AES_GCM,
			EncryptedKey: wrapped,
		})
	}
	var latest = keys[rotations[len(rotations)-1]]
	var sealed []byte
	sealed, err = EncryptVaultContent(&VaultContent{Name: name}, latest)
	assert.NilError(t, err)

	tv.remote.mutex.Lock()
	tv.remote.keys[shareUid] = remoteKeys
	tv.remote.shares[shareUid] = &RemoteShare{
		ShareUid:             shareUid,
		Revision:             tv.remote.nextRevision(),
		KeyRotation:          latest.KeyRotation,
		ContentFormatVersion: ContentFormatVersion_Json,
		Content:              sealed,
		Owner:                true,
		CreateTime:           time.Now().UnixMilli(),
		MemberCount:          1,
	}
	tv.remote.mutex.Unlock()
	return keys
}

// addShareKey appends one more key generation to an existing remote share,
// wrapped under the session symmetric key, and returns the decrypted key.
func (tv *testVault) addShareKey(t *testing.T, shareUid string, rotation int64) *ShareKey {
	var symmetricKey, err = tv.keyring.SymmetricKey()
	assert.NilError(t, err)
	var key = &ShareKey{
		ShareUid:    shareUid,
		KeyRotation: rotation,
		Raw:         api.GenerateAesKey(),
	}
	var wrapped []byte
	wrapped, err = api.EncryptAesGcm(key.Raw, symmetricKey, nil)
	assert.NilError(t, err)
	tv.remote.mutex.Lock()
	tv.remote.keys[shareUid] = append(tv.remote.keys[shareUid], &RemoteShareKey{
		ShareUid:     shareUid,
		KeyRotation:  rotation,
		KeyType:      RemoteKeyType_SessionKey_AES_GCM,
		EncryptedKey: wrapped,
	})
	tv.remote.mutex.Unlock()
	return key
}

// addRemoteItem puts a sealed login item on the fake remote at a fixed
// revision.
func (tv *testVault) addRemoteItem(t *testing.T, shareUid string, itemUid string, key *ShareKey, revision int64, title string) {
	var sealed, err = EncryptItemContent(&ItemContent{
		Kind:  ItemKind_Login,
		Title: title,
		Login: &LoginContent{Username: "user@company.com", Password: "secret"},
	}, key)
	assert.NilError(t, err)
	tv.remote.mutex.Lock()
	if tv.remote.items[shareUid] == nil {
		tv.remote.items[shareUid] = make(map[string]*RemoteItemRevision)
	}
	tv.remote.items[shareUid][itemUid] = &RemoteItemRevision{
		ItemUid:              itemUid,
		Revision:             revision,
		ContentFormatVersion: ContentFormatVersion_Json,
		KeyRotation:          key.KeyRotation,
		Content:              sealed,
		State:                int32(ItemState_Active),
		CreateTime:           time.Now().UnixMilli(),
		ModifyTime:           time.Now().UnixMilli(),
	}
	if revision > tv.remote.revisionCounter {
		tv.remote.revisionCounter = revision
	}
	tv.remote.mutex.Unlock()
}
