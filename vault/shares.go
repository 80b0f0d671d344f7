package vault

import (
	"context"
	"fmt"

	"github.com/passvault/passvault-sdk-golang/api"
	"github.com/passvault/passvault-sdk-golang/internal/database"
)

// CreateVault generates a fresh vault key at rotation 1, seals the metadata
// in the vault content domain and registers the share with the remote store.
func (v *Vault) CreateVault(ctx context.Context, content *VaultContent) (share *ShareInfo, err error) {
	var symmetricKey []byte
	if symmetricKey, err = v.keyring.SymmetricKey(); err != nil {
		return
	}
	var key = &ShareKey{
		KeyRotation: 1,
		Raw:         api.GenerateAesKey(),
	}
	var sealed []byte
	if sealed, err = EncryptVaultContent(content, key); err != nil {
		return
	}
	var wrappedKey []byte
	if wrappedKey, err = api.EncryptAesGcm(key.Raw, symmetricKey, nil); err != nil {
		return
	}
	var remoteShare *RemoteShare
	if remoteShare, err = v.remote.CreateVault(ctx, &CreateVaultRequest{
		Content:              sealed,
		ContentFormatVersion: ContentFormatVersion_Json,
		EncryptedVaultKey:    wrappedKey,
		KeyType:              RemoteKeyType_SessionKey_AES_GCM,
	}); err != nil {
		err = api.NewRemoteUnavailableError(err)
		return
	}
	key.ShareUid = remoteShare.ShareUid
	key.KeyRotation = remoteShare.KeyRotation
	if err = v.keyStore.AddKeys(remoteShare.ShareUid, []*ShareKey{key}); err != nil {
		return
	}
	if err = v.storeShare(ctx, remoteShare); err != nil {
		return
	}
	return v.GetShare(remoteShare.ShareUid)
}

// UpdateVault reseals the share metadata under the latest key and pushes it.
// The cached row keeps its server revision; the next sync picks up the one
// the server assigned.
func (v *Vault) UpdateVault(ctx context.Context, shareUid string, content *VaultContent) (err error) {
	var row IStorageShare
	if row, err = v.vaultStorage.Shares().GetEntity(shareUid); err != nil {
		return
	}
	if row == nil {
		err = api.NewVaultError(fmt.Sprintf("share not found: \"%s\"", shareUid))
		return
	}
	var key *ShareKey
	if key, err = v.keyStore.LatestKey(ctx, shareUid); err != nil {
		return
	}
	var sealed []byte
	if sealed, err = EncryptVaultContent(content, key); err != nil {
		return
	}
	if err = v.remote.UpdateVault(ctx, shareUid, &UpdateVaultRequest{
		KeyRotation:          key.KeyRotation,
		LastRevision:         row.Revision(),
		Content:              sealed,
		ContentFormatVersion: ContentFormatVersion_Json,
	}); err != nil {
		err = api.NewRemoteUnavailableError(err)
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
		ShareUid_:    row.ShareUid(),
		Revision_:    row.Revision(),
		Name_:        sealedName,
		Data_:        sealedData,
		Owner_:       row.Owner(),
		CreateTime_:  row.CreateTime(),
		MemberCount_: row.MemberCount(),
	}})
}

// TransferOwnership hands the share to another member's share reference.
func (v *Vault) TransferOwnership(ctx context.Context, shareUid string, newOwnerShareUid string) (err error) {
	if err = v.remote.TransferOwnership(ctx, shareUid, newOwnerShareUid); err != nil {
		err = api.NewRemoteUnavailableError(err)
		return
	}
	var row IStorageShare
	if row, err = v.vaultStorage.Shares().GetEntity(shareUid); err != nil || row == nil {
		return
	}
	var updated = &database.ShareStorage{
		ShareUid_:    row.ShareUid(),
		Revision_:    row.Revision(),
		Name_:        row.Name(),
		Data_:        row.Data(),
		Owner_:       false,
		CreateTime_:  row.CreateTime(),
		MemberCount_: row.MemberCount(),
	}
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.vaultStorage.Shares().PutEntities([]IStorageShare{updated})
}

// DeleteUserShare revokes a user's membership. Revoking this user drops the
// share and everything under it from the cache.
func (v *Vault) DeleteUserShare(ctx context.Context, shareUid string, userUid string) (err error) {
	if err = v.remote.DeleteUserShare(ctx, shareUid, userUid); err != nil {
		err = api.NewRemoteUnavailableError(err)
		return
	}
	if userUid != v.vaultStorage.PersonalScopeUid() {
		return
	}
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if err = v.vaultStorage.Items().DeleteLinksForSubjects([]string{shareUid}); err != nil {
		return
	}
	if err = v.vaultStorage.ShareKeys().DeleteLinksForSubjects([]string{shareUid}); err != nil {
		return
	}
	return v.vaultStorage.Shares().DeleteUids([]string{shareUid})
}
