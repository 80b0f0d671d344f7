package vault

import (
	"context"
	"testing"

	"gotest.tools/assert"
)

func TestCreateAndEditItem(t *testing.T) {
	var tv = newTestVault(t)
	tv.addShare(t, "share-1", "Personal", 1, 2)
	var ctx = context.Background()

	var item, err = tv.vault.CreateItem(ctx, "share-1", &ItemContent{
		Kind:  ItemKind_Login,
		Title: "Forum",
		Login: &LoginContent{Username: "user@company.com", Password: "one"},
	})
	assert.NilError(t, err)
	assert.Assert(t, item != nil)
	assert.Equal(t, item.Content.Title, "Forum")
	// new content always seals under the latest generation
	tv.remote.mutex.Lock()
	var remoteRevision = tv.remote.items["share-1"][item.ItemUid]
	tv.remote.mutex.Unlock()
	assert.Equal(t, remoteRevision.KeyRotation, int64(2))

	var edited *ItemInfo
	edited, err = tv.vault.EditItem(ctx, "share-1", item.ItemUid, &ItemContent{
		Kind:  ItemKind_Login,
		Title: "Forum v2",
		Login: &LoginContent{Username: "user@company.com", Password: "two"},
	})
	assert.NilError(t, err)
	assert.Equal(t, edited.Content.Title, "Forum v2")
	assert.Assert(t, edited.Revision > item.Revision)
}

func TestTrashAndDeleteItem(t *testing.T) {
	var tv = newTestVault(t)
	tv.addShare(t, "share-1", "Personal", 1)
	var ctx = context.Background()

	var item, err = tv.vault.CreateItem(ctx, "share-1", &ItemContent{Kind: ItemKind_Note, Title: "n", Note: "text"})
	assert.NilError(t, err)

	assert.NilError(t, tv.vault.TrashItem(ctx, "share-1", item.ItemUid))
	var trashed *ItemInfo
	trashed, err = tv.vault.GetItem("share-1", item.ItemUid)
	assert.NilError(t, err)
	assert.Equal(t, trashed.State, ItemState_Trashed)

	assert.NilError(t, tv.vault.DeleteItem(ctx, "share-1", item.ItemUid))
	var gone *ItemInfo
	gone, err = tv.vault.GetItem("share-1", item.ItemUid)
	assert.NilError(t, err)
	assert.Assert(t, gone == nil)
}

func TestPinItem(t *testing.T) {
	var tv = newTestVault(t)
	tv.addShare(t, "share-1", "Personal", 1)
	var ctx = context.Background()

	var item, err = tv.vault.CreateItem(ctx, "share-1", &ItemContent{Kind: ItemKind_Note, Title: "n", Note: "text"})
	assert.NilError(t, err)

	assert.NilError(t, tv.vault.PinItem(ctx, "share-1", item.ItemUid))
	var pinned *ItemInfo
	pinned, err = tv.vault.GetItem("share-1", item.ItemUid)
	assert.NilError(t, err)
	assert.Assert(t, pinned.Pinned)

	assert.NilError(t, tv.vault.UnpinItem(ctx, "share-1", item.ItemUid))
	pinned, err = tv.vault.GetItem("share-1", item.ItemUid)
	assert.NilError(t, err)
	assert.Assert(t, !pinned.Pinned)
}

func TestCreateAndUpdateVault(t *testing.T) {
	var tv = newTestVault(t)
	var ctx = context.Background()

	var share, err = tv.vault.CreateVault(ctx, &VaultContent{Name: "Family", Color: "blue"})
	assert.NilError(t, err)
	assert.Equal(t, share.Name, "Family")
	assert.Assert(t, share.Owner)

	// the fresh vault key is usable right away
	var item *ItemInfo
	item, err = tv.vault.CreateItem(ctx, share.ShareUid, &ItemContent{
		Kind:  ItemKind_Alias,
		Title: "Shopping alias",
		Alias: &AliasContent{AliasEmail: "shop@alias.example.com", AliasEnabled: true},
	})
	assert.NilError(t, err)
	assert.Equal(t, item.Content.Alias.AliasEmail, "shop@alias.example.com")

	assert.NilError(t, tv.vault.UpdateVault(ctx, share.ShareUid, &VaultContent{Name: "Family 2"}))
	var updated *ShareInfo
	updated, err = tv.vault.GetShare(share.ShareUid)
	assert.NilError(t, err)
	assert.Equal(t, updated.Name, "Family 2")
}

func TestDeleteUserShareDropsLocalRows(t *testing.T) {
	var tv = newTestVault(t)
	var ctx = context.Background()

	var share, err = tv.vault.CreateVault(ctx, &VaultContent{Name: "Team"})
	assert.NilError(t, err)
	_, err = tv.vault.CreateItem(ctx, share.ShareUid, &ItemContent{Kind: ItemKind_Note, Title: "n", Note: "x"})
	assert.NilError(t, err)

	assert.NilError(t, tv.vault.DeleteUserShare(ctx, share.ShareUid, "user-1"))
	var gone *ShareInfo
	gone, err = tv.vault.GetShare(share.ShareUid)
	assert.NilError(t, err)
	assert.Assert(t, gone == nil)
}

func TestPlanLimits(t *testing.T) {
	var tv = newTestVault(t)
	var ctx = context.Background()

	var plan, err = tv.vault.GetPlan()
	assert.NilError(t, err)
	assert.Assert(t, plan == nil)

	plan, err = tv.vault.RefreshAccess(ctx)
	assert.NilError(t, err)
	assert.Assert(t, plan.VaultLimit != nil)
	assert.Equal(t, *plan.VaultLimit, int64(2))
	// -1 on the wire means unlimited
	assert.Assert(t, plan.AliasLimit == nil)
	assert.Assert(t, plan.TotpLimit == nil)
	assert.Assert(t, plan.TrialEnd == nil)
}
