package vault

import (
	"encoding/json"
	"fmt"

	"github.com/passvault/passvault-sdk-golang/api"
)

// Encryption domain tags. Bound into AES-GCM as associated data so item
// ciphertext can never be replayed as vault metadata or the other way around.
var (
	aadItemContent  = []byte("itemcontent")
	aadVaultContent = []byte("vaultcontent")
	aadItemKey      = []byte("itemkey")
)

func validateItemContent(content *ItemContent) (err error) {
	if content == nil {
		return api.NewVaultError("item content is nil")
	}
	switch content.Kind {
	case ItemKind_Login:
		if content.Login == nil {
			err = api.NewVaultError("login item has no login payload")
		}
	case ItemKind_Note:
	case ItemKind_Alias:
		if content.Alias == nil {
			err = api.NewVaultError("alias item has no alias payload")
		}
	case ItemKind_CreditCard:
		if content.CreditCard == nil {
			err = api.NewVaultError("credit card item has no card payload")
		}
	default:
		err = api.NewVaultError(fmt.Sprintf("unknown item kind: %d", content.Kind))
	}
	return
}

// EncodeItemContent serializes item content to the version 1 format.
func EncodeItemContent(content *ItemContent) (data []byte, err error) {
	if err = validateItemContent(content); err != nil {
		return
	}
	return json.Marshal(content)
}

// DecodeItemContent dispatches on the stored content format version. Formats
// this client does not know fail with UnsupportedFormat and are skipped by
// read paths rather than failing a whole sync.
func DecodeItemContent(data []byte, contentFormatVersion int32) (content *ItemContent, err error) {
	switch contentFormatVersion {
	case ContentFormatVersion_Json:
		content = new(ItemContent)
		if err = json.Unmarshal(data, content); err != nil {
			content = nil
			return
		}
		if err = validateItemContent(content); err != nil {
			content = nil
		}
	default:
		err = api.NewUnsupportedFormatError(contentFormatVersion)
	}
	return
}

// EncryptItemContent seals item content under a share key in the item content
// domain.
func EncryptItemContent(content *ItemContent, key *ShareKey) (data []byte, err error) {
	var encoded []byte
	if encoded, err = EncodeItemContent(content); err != nil {
		return
	}
	return api.EncryptAesGcm(encoded, key.Raw, aadItemContent)
}

// DecryptItemContent opens item ciphertext with the share key generation that
// sealed it. When the revision carries a wrapped per-item key, that key is
// unwrapped first and the content is opened under it.
func DecryptItemContent(data []byte, itemKey []byte, key *ShareKey, contentFormatVersion int32) (content *ItemContent, err error) {
	var contentKey = key.Raw
	if len(itemKey) > 0 {
		if contentKey, err = api.DecryptAesGcm(itemKey, key.Raw, aadItemKey); err != nil {
			return
		}
	}
	var decoded []byte
	if decoded, err = api.DecryptAesGcm(data, contentKey, aadItemContent); err != nil {
		return
	}
	return DecodeItemContent(decoded, contentFormatVersion)
}

func EncodeVaultContent(content *VaultContent) (data []byte, err error) {
	if content == nil {
		err = api.NewVaultError("vault content is nil")
		return
	}
	return json.Marshal(content)
}

func DecodeVaultContent(data []byte) (content *VaultContent, err error) {
	content = new(VaultContent)
	if err = json.Unmarshal(data, content); err != nil {
		content = nil
	}
	return
}

// EncryptVaultContent seals share metadata in the vault content domain.
func EncryptVaultContent(content *VaultContent, key *ShareKey) (data []byte, err error) {
	var encoded []byte
	if encoded, err = EncodeVaultContent(content); err != nil {
		return
	}
	return api.EncryptAesGcm(encoded, key.Raw, aadVaultContent)
}

func DecryptVaultContent(data []byte, key *ShareKey, contentFormatVersion int32) (content *VaultContent, err error) {
	switch contentFormatVersion {
	case ContentFormatVersion_Json:
	default:
		err = api.NewUnsupportedFormatError(contentFormatVersion)
		return
	}
	var decoded []byte
	if decoded, err = api.DecryptAesGcm(data, key.Raw, aadVaultContent); err != nil {
		return
	}
	return DecodeVaultContent(decoded)
}

// BuildUpdateRequest seals new content under the latest share key and stamps
// the revision the client last observed so the server can reject stale
// writes.
func BuildUpdateRequest(lastObservedRevision int64, latestKey *ShareKey, newContent *ItemContent) (request *UpdateRequest, err error) {
	var sealed []byte
	if sealed, err = EncryptItemContent(newContent, latestKey); err != nil {
		return
	}
	request = &UpdateRequest{
		KeyRotation:          latestKey.KeyRotation,
		LastRevision:         lastObservedRevision,
		Content:              sealed,
		ContentFormatVersion: ContentFormatVersion_Json,
	}
	return
}
