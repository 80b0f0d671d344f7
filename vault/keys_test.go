package vault

import (
	"context"
	"errors"
	"testing"

	"github.com/passvault/passvault-sdk-golang/api"
	"gotest.tools/assert"
)

func TestSelectLatestKey(t *testing.T) {
	var keys = []*ShareKey{
		testShareKey(2),
		testShareKey(7),
		testShareKey(5),
		testShareKey(1),
	}
	var latest, err = SelectLatestKey(keys, "share-1")
	assert.NilError(t, err)
	assert.Equal(t, latest.KeyRotation, int64(7))

	_, err = SelectLatestKey(nil, "share-1")
	var missingErr *api.MissingKeysError
	assert.Assert(t, errors.As(err, &missingErr))
	assert.Equal(t, missingErr.ShareUid(), "share-1")
}

func TestKeyStoreFetchesAndCaches(t *testing.T) {
	var tv = newTestVault(t)
	var keys = tv.addShare(t, "share-1", "Personal", 1, 2, 3)
	var ctx = context.Background()
	var store = tv.vault.KeyStore()

	var latest, err = store.LatestKey(ctx, "share-1")
	assert.NilError(t, err)
	assert.Equal(t, latest.KeyRotation, int64(3))
	assert.DeepEqual(t, latest.Raw, keys[3].Raw)

	// historical generation by exact rotation
	var key *ShareKey
	key, err = store.KeyForRotation(ctx, "share-1", 2)
	assert.NilError(t, err)
	assert.DeepEqual(t, key.Raw, keys[2].Raw)

	// everything so far was served by the single fetch
	assert.Equal(t, tv.remote.getShareKeysCalls, 1)

	// an unknown rotation re-checks the remote before giving up
	_, err = store.KeyForRotation(ctx, "share-1", 9)
	var missingErr *api.MissingKeysError
	assert.Assert(t, errors.As(err, &missingErr))
	assert.Equal(t, tv.remote.getShareKeysCalls, 2)
}

func TestKeyStoreReloadsFromEncryptedRows(t *testing.T) {
	var tv = newTestVault(t)
	var keys = tv.addShare(t, "share-1", "Personal", 1, 2)
	var ctx = context.Background()

	var _, err = tv.vault.KeyStore().LatestKey(ctx, "share-1")
	assert.NilError(t, err)

	// a second store over the same cache must not need the remote
	var second = NewShareKeyStore(tv.keyring, tv.vault.Storage(), tv.remote)
	var latest *ShareKey
	latest, err = second.LatestKey(ctx, "share-1")
	assert.NilError(t, err)
	assert.Equal(t, latest.KeyRotation, int64(2))
	assert.DeepEqual(t, latest.Raw, keys[2].Raw)
	assert.Equal(t, tv.remote.getShareKeysCalls, 1)
}

func TestKeyStoreAppendsOnAdd(t *testing.T) {
	var tv = newTestVault(t)
	tv.addShare(t, "share-1", "Personal", 1)
	var ctx = context.Background()
	var store = tv.vault.KeyStore()

	var _, err = store.LatestKey(ctx, "share-1")
	assert.NilError(t, err)

	var next = &ShareKey{ShareUid: "share-1", KeyRotation: 2, Raw: api.GenerateAesKey()}
	assert.NilError(t, store.AddKeys("share-1", []*ShareKey{next}))

	var latest *ShareKey
	latest, err = store.LatestKey(ctx, "share-1")
	assert.NilError(t, err)
	assert.Equal(t, latest.KeyRotation, int64(2))

	// rotation 1 still decrypts history
	var old *ShareKey
	old, err = store.KeyForRotation(ctx, "share-1", 1)
	assert.NilError(t, err)
	assert.Equal(t, old.KeyRotation, int64(1))
}

func TestKeyStoreFetchesRotationIssuedAfterWarmup(t *testing.T) {
	var tv = newTestVault(t)
	tv.addShare(t, "share-1", "Personal", 1)
	var ctx = context.Background()
	var store = tv.vault.KeyStore()

	var _, err = store.LatestKey(ctx, "share-1")
	assert.NilError(t, err)
	assert.Equal(t, tv.remote.getShareKeysCalls, 1)

	// the server rotated behind this client's back
	var rotated = tv.addShareKey(t, "share-1", 2)

	// a rotation miss with a warm cache goes back to the remote
	var key *ShareKey
	key, err = store.KeyForRotation(ctx, "share-1", 2)
	assert.NilError(t, err)
	assert.DeepEqual(t, key.Raw, rotated.Raw)
	assert.Equal(t, tv.remote.getShareKeysCalls, 2)

	// the fetched generation is cached alongside the old one
	key, err = store.KeyForRotation(ctx, "share-1", 2)
	assert.NilError(t, err)
	assert.DeepEqual(t, key.Raw, rotated.Raw)
	var old *ShareKey
	old, err = store.KeyForRotation(ctx, "share-1", 1)
	assert.NilError(t, err)
	assert.Equal(t, old.KeyRotation, int64(1))
	assert.Equal(t, tv.remote.getShareKeysCalls, 2)
}

func TestKeyStoreRequiresSessionKey(t *testing.T) {
	var tv = newTestVault(t)
	tv.addShare(t, "share-1", "Personal", 1)
	tv.keyring.Wipe()

	var _, err = tv.vault.KeyStore().LatestKey(context.Background(), "share-1")
	var keyErr *api.KeyUnavailableError
	assert.Assert(t, errors.As(err, &keyErr))
}
