package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/passvault/passvault-sdk-golang/api"
)

// staleRetryLimit bounds how many times a rejected optimistic write refetches
// the single conflicting item before surfacing StaleRevision.
const staleRetryLimit = 3

// CreateItem seals new content under the share's latest key and caches the
// revision the server assigned.
func (v *Vault) CreateItem(ctx context.Context, shareUid string, content *ItemContent) (item *ItemInfo, err error) {
	var key *ShareKey
	if key, err = v.keyStore.LatestKey(ctx, shareUid); err != nil {
		return
	}
	var sealed []byte
	if sealed, err = EncryptItemContent(content, key); err != nil {
		return
	}
	var revision *RemoteItemRevision
	if revision, err = v.remote.CreateItem(ctx, shareUid, &CreateItemRequest{
		KeyRotation:          key.KeyRotation,
		Content:              sealed,
		ContentFormatVersion: ContentFormatVersion_Json,
	}); err != nil {
		err = api.NewRemoteUnavailableError(err)
		return
	}
	if _, _, err = v.storeItemRevisions(ctx, shareUid, []*RemoteItemRevision{revision}); err != nil {
		return
	}
	return v.GetItem(shareUid, revision.ItemUid)
}

// EditItem writes new content with optimistic concurrency, following the
// stale-write retry policy of retryStaleWrite.
func (v *Vault) EditItem(ctx context.Context, shareUid string, itemUid string, newContent *ItemContent) (item *ItemInfo, err error) {
	var row IStorageItem
	if row, err = v.vaultStorage.Items().GetLink(shareUid, itemUid); err != nil {
		return
	}
	if row == nil {
		err = api.NewVaultError(fmt.Sprintf("item not found: share \"%s\" item \"%s\"", shareUid, itemUid))
		return
	}
	var key *ShareKey
	if key, err = v.keyStore.LatestKey(ctx, shareUid); err != nil {
		return
	}
	var request *UpdateRequest
	if request, err = BuildUpdateRequest(row.Revision(), key, newContent); err != nil {
		return
	}
	err = v.retryStaleWrite(ctx, shareUid, itemUid, row.Revision(), func(lastRevision int64) (*RemoteItemRevision, error) {
		request.LastRevision = lastRevision
		return v.remote.UpdateItem(ctx, shareUid, itemUid, request)
	})
	if err != nil {
		return
	}
	return v.GetItem(shareUid, itemUid)
}

// retryStaleWrite runs an optimistic write. On a stale lastRevision rejection
// it refetches just the conflicting item, adopts its revision and retries,
// never a full resync. After staleRetryLimit rejections the write fails with
// StaleRevision.
func (v *Vault) retryStaleWrite(ctx context.Context, shareUid string, itemUid string, lastRevision int64,
	write func(lastRevision int64) (*RemoteItemRevision, error)) (err error) {
	for attempt := 0; attempt < staleRetryLimit; attempt++ {
		var revision *RemoteItemRevision
		revision, err = write(lastRevision)
		if err == nil {
			_, _, err = v.storeItemRevisions(ctx, shareUid, []*RemoteItemRevision{revision})
			return
		}
		var staleErr *api.StaleRevisionError
		if !errors.As(err, &staleErr) {
			err = api.NewRemoteUnavailableError(err)
			return
		}
		var fresh *RemoteItemRevision
		if fresh, err = v.remote.GetItemRevision(ctx, shareUid, itemUid); err != nil {
			err = api.NewRemoteUnavailableError(err)
			return
		}
		if _, _, err = v.storeItemRevisions(ctx, shareUid, []*RemoteItemRevision{fresh}); err != nil {
			return
		}
		lastRevision = fresh.Revision
	}
	err = api.NewStaleRevisionError(shareUid, itemUid, lastRevision)
	return
}

// TrashItem moves an item to the trashed state. Trash is a state, not an
// absence: the revision stays in the cache. A stale rejection follows the
// same refetch-and-retry policy as EditItem.
func (v *Vault) TrashItem(ctx context.Context, shareUid string, itemUid string) (err error) {
	var row IStorageItem
	if row, err = v.vaultStorage.Items().GetLink(shareUid, itemUid); err != nil {
		return
	}
	if row == nil {
		err = api.NewVaultError(fmt.Sprintf("item not found: share \"%s\" item \"%s\"", shareUid, itemUid))
		return
	}
	return v.retryStaleWrite(ctx, shareUid, itemUid, row.Revision(), func(lastRevision int64) (*RemoteItemRevision, error) {
		return v.remote.TrashItem(ctx, shareUid, itemUid, lastRevision)
	})
}

// DeleteItem removes an item permanently, remote first, then the cache row.
func (v *Vault) DeleteItem(ctx context.Context, shareUid string, itemUid string) (err error) {
	if err = v.remote.DeleteItem(ctx, shareUid, itemUid); err != nil {
		err = api.NewRemoteUnavailableError(err)
		return
	}
	return v.removeItems(shareUid, []string{itemUid})
}

func (v *Vault) PinItem(ctx context.Context, shareUid string, itemUid string) error {
	return v.setPinned(ctx, shareUid, itemUid, true)
}

func (v *Vault) UnpinItem(ctx context.Context, shareUid string, itemUid string) error {
	return v.setPinned(ctx, shareUid, itemUid, false)
}

func (v *Vault) setPinned(ctx context.Context, shareUid string, itemUid string, pinned bool) (err error) {
	if pinned {
		err = v.remote.PinItem(ctx, shareUid, itemUid)
	} else {
		err = v.remote.UnpinItem(ctx, shareUid, itemUid)
	}
	if err != nil {
		err = api.NewRemoteUnavailableError(err)
		return
	}
	var fresh *RemoteItemRevision
	if fresh, err = v.remote.GetItemRevision(ctx, shareUid, itemUid); err != nil {
		err = api.NewRemoteUnavailableError(err)
		return
	}
	_, _, err = v.storeItemRevisions(ctx, shareUid, []*RemoteItemRevision{fresh})
	return
}
