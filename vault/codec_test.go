package vault

import (
	"errors"
	"testing"

	"github.com/passvault/passvault-sdk-golang/api"
	"gotest.tools/assert"
)

func testShareKey(rotation int64) *ShareKey {
	return &ShareKey{
		ShareUid:    "share-1",
		KeyRotation: rotation,
		Raw:         api.GenerateAesKey(),
	}
}

func TestItemContentRoundTrip(t *testing.T) {
	var key = testShareKey(1)
	var content = &ItemContent{
		Kind:  ItemKind_Login,
		Title: "Bank",
		Login: &LoginContent{
			Username: "user@company.com",
			Password: "hunter2",
			Urls:     []string{"https://bank.example.com"},
		},
	}
	var sealed, err = EncryptItemContent(content, key)
	assert.NilError(t, err)
	assert.Assert(t, len(sealed) >= api.MinSealedSize)

	var decrypted *ItemContent
	decrypted, err = DecryptItemContent(sealed, nil, key, ContentFormatVersion_Json)
	assert.NilError(t, err)
	assert.DeepEqual(t, content, decrypted)
}

func TestItemKeyWrapping(t *testing.T) {
	var key = testShareKey(4)
	var itemKeyRaw = api.GenerateAesKey()
	var content = &ItemContent{Kind: ItemKind_Note, Title: "Wifi", Note: "pass: 1234"}
	var encoded, err = EncodeItemContent(content)
	assert.NilError(t, err)
	var sealed []byte
	sealed, err = api.EncryptAesGcm(encoded, itemKeyRaw, []byte("itemcontent"))
	assert.NilError(t, err)
	var wrappedItemKey []byte
	wrappedItemKey, err = api.EncryptAesGcm(itemKeyRaw, key.Raw, []byte("itemkey"))
	assert.NilError(t, err)

	var decrypted *ItemContent
	decrypted, err = DecryptItemContent(sealed, wrappedItemKey, key, ContentFormatVersion_Json)
	assert.NilError(t, err)
	assert.DeepEqual(t, content, decrypted)
}

func TestDomainSeparation(t *testing.T) {
	var key = testShareKey(1)
	var sealed, err = EncryptVaultContent(&VaultContent{Name: "Personal"}, key)
	assert.NilError(t, err)

	// vault ciphertext must not open in the item content domain
	_, err = DecryptItemContent(sealed, nil, key, ContentFormatVersion_Json)
	var cryptoErr *api.CryptoFailureError
	assert.Assert(t, errors.As(err, &cryptoErr))

	var content *VaultContent
	content, err = DecryptVaultContent(sealed, key, ContentFormatVersion_Json)
	assert.NilError(t, err)
	assert.Equal(t, content.Name, "Personal")
}

func TestUnsupportedContentFormat(t *testing.T) {
	var key = testShareKey(1)
	var sealed, err = EncryptItemContent(&ItemContent{Kind: ItemKind_Note, Title: "n"}, key)
	assert.NilError(t, err)
	_, err = DecryptItemContent(sealed, nil, key, 99)
	var formatErr *api.UnsupportedFormatError
	assert.Assert(t, errors.As(err, &formatErr))
	assert.Equal(t, formatErr.ContentFormatVersion(), int32(99))
}

func TestEncodeRejectsMalformedContent(t *testing.T) {
	var _, err = EncodeItemContent(&ItemContent{Kind: ItemKind_Login, Title: "no payload"})
	assert.Assert(t, err != nil)
	_, err = EncodeItemContent(&ItemContent{Kind: ItemKind(42), Title: "unknown"})
	assert.Assert(t, err != nil)
	_, err = EncodeItemContent(nil)
	assert.Assert(t, err != nil)
}

func TestBuildUpdateRequest(t *testing.T) {
	var key = testShareKey(7)
	var request, err = BuildUpdateRequest(12, key, &ItemContent{Kind: ItemKind_Note, Title: "n", Note: "text"})
	assert.NilError(t, err)
	assert.Equal(t, request.KeyRotation, int64(7))
	assert.Equal(t, request.LastRevision, int64(12))
	assert.Equal(t, request.ContentFormatVersion, ContentFormatVersion_Json)
	assert.Assert(t, len(request.Content) >= api.MinSealedSize)
}

func TestDecryptShortCiphertext(t *testing.T) {
	var key = testShareKey(1)
	var _, err = DecryptItemContent([]byte("short"), nil, key, ContentFormatVersion_Json)
	var cryptoErr *api.CryptoFailureError
	assert.Assert(t, errors.As(err, &cryptoErr))
}
