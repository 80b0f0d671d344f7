package vault

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/passvault/passvault-sdk-golang/api"
	"go.uber.org/zap"
)

type SyncState int32

const (
	SyncState_Idle SyncState = iota
	SyncState_Fetching
	SyncState_Diffing
	SyncState_Applying
	SyncState_Failed
	SyncState_Cancelled
)

func (s SyncState) String() string {
	switch s {
	case SyncState_Idle:
		return "Idle"
	case SyncState_Fetching:
		return "Fetching"
	case SyncState_Diffing:
		return "Diffing"
	case SyncState_Applying:
		return "Applying"
	case SyncState_Failed:
		return "Failed"
	case SyncState_Cancelled:
		return "Cancelled"
	}
	return "Unknown"
}

// SyncEvent summarizes one share's reconciliation, or the whole cycle when
// ShareUid is empty.
type SyncEvent struct {
	ShareUid string
	State    SyncState
	Inserted int
	Updated  int
	Deleted  int
	Skipped  int
	Err      error
}

type SyncResult struct {
	ShareUid string
	Inserted int
	Updated  int
	Deleted  int
	Skipped  int
}

type SyncOptions struct {
	PageSize       int
	MaxAttempts    int
	InitialBackoff time.Duration
}

const (
	defaultPageSize       = 100
	defaultMaxAttempts    = 3
	defaultInitialBackoff = time.Second
)

func (o *SyncOptions) normalize() {
	if o.PageSize <= 0 {
		o.PageSize = defaultPageSize
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = defaultInitialBackoff
	}
}

// SyncRequest_All asks the engine's run loop for a full cycle over every
// share.
const SyncRequest_All = ""

// SyncEngine reconciles the local cache against the remote store. State is
// tracked per share; observers read the event channel. Sync requests arrive
// over an engine-owned channel instead of any OS notification mechanism.
type SyncEngine struct {
	mutex    sync.Mutex
	vault    *Vault
	options  SyncOptions
	events   chan SyncEvent
	requests chan string
	states   map[string]SyncState
}

func NewSyncEngine(vault *Vault, options *SyncOptions) *SyncEngine {
	var o SyncOptions
	if options != nil {
		o = *options
	}
	o.normalize()
	return &SyncEngine{
		vault:    vault,
		options:  o,
		events:   make(chan SyncEvent, 64),
		requests: make(chan string, 16),
		states:   make(map[string]SyncState),
	}
}

func (se *SyncEngine) Events() <-chan SyncEvent {
	return se.events
}

// RequestSync enqueues a sync without blocking. A full queue drops the
// request; the next full cycle covers it.
func (se *SyncEngine) RequestSync(shareUid string) {
	select {
	case se.requests <- shareUid:
	default:
		api.GetLogger().Debug("Sync request queue is full", zap.String("shareUid", shareUid))
	}
}

// Run serves sync requests until the context is cancelled.
func (se *SyncEngine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case shareUid := <-se.requests:
			var err error
			if shareUid == SyncRequest_All {
				err = se.SyncAll(ctx)
			} else {
				_, err = se.SyncShare(ctx, shareUid)
			}
			if err != nil {
				api.GetLogger().Warn("Sync request failed", zap.String("shareUid", shareUid), zap.Error(err))
			}
		}
	}
}

func (se *SyncEngine) ShareState(shareUid string) SyncState {
	se.mutex.Lock()
	defer se.mutex.Unlock()
	return se.states[shareUid]
}

func (se *SyncEngine) setState(shareUid string, state SyncState) {
	se.mutex.Lock()
	se.states[shareUid] = state
	se.mutex.Unlock()
}

func (se *SyncEngine) emit(event SyncEvent) {
	select {
	case se.events <- event:
	default:
		api.GetLogger().Debug("Sync event dropped", zap.String("shareUid", event.ShareUid))
	}
}

// SyncAll fetches the share list, refreshes every share and closes the cycle
// with one aggregated event. Transport failures retry the whole cycle with
// backoff.
func (se *SyncEngine) SyncAll(ctx context.Context) (err error) {
	var aggregate SyncResult
	err = se.withBackoff(ctx, func() (cycleErr error) {
		aggregate = SyncResult{}
		var remoteShares []*RemoteShare
		if remoteShares, cycleErr = se.vault.remote.GetShares(ctx); cycleErr != nil {
			cycleErr = api.NewRemoteUnavailableError(cycleErr)
			return
		}
		var remoteUids = api.NewSet[string]()
		for _, remoteShare := range remoteShares {
			if cycleErr = ctx.Err(); cycleErr != nil {
				return
			}
			remoteUids.Add(remoteShare.ShareUid)
			if cycleErr = se.vault.storeShare(ctx, remoteShare); cycleErr != nil {
				return
			}
		}
		// shares gone remotely are gone locally, items included
		var staleUids []string
		if cycleErr = se.vault.vaultStorage.Shares().GetAll(func(row IStorageShare) bool {
			if !remoteUids.Has(row.ShareUid()) {
				staleUids = append(staleUids, row.ShareUid())
			}
			return true
		}); cycleErr != nil {
			return
		}
		if len(staleUids) > 0 {
			if cycleErr = se.vault.vaultStorage.Items().DeleteLinksForSubjects(staleUids); cycleErr != nil {
				return
			}
			if cycleErr = se.vault.vaultStorage.ShareKeys().DeleteLinksForSubjects(staleUids); cycleErr != nil {
				return
			}
			if cycleErr = se.vault.vaultStorage.Shares().DeleteUids(staleUids); cycleErr != nil {
				return
			}
		}
		for _, remoteShare := range remoteShares {
			var result *SyncResult
			if result, cycleErr = se.syncShareOnce(ctx, remoteShare.ShareUid); cycleErr != nil {
				return
			}
			aggregate.Inserted += result.Inserted
			aggregate.Updated += result.Updated
			aggregate.Deleted += result.Deleted
			aggregate.Skipped += result.Skipped
		}
		return
	})
	if err != nil {
		se.emit(SyncEvent{State: se.failureState(err), Err: err})
		return
	}
	se.emit(SyncEvent{
		State:    SyncState_Idle,
		Inserted: aggregate.Inserted,
		Updated:  aggregate.Updated,
		Deleted:  aggregate.Deleted,
		Skipped:  aggregate.Skipped,
	})
	return
}

// SyncShare reconciles a single share, retrying the cycle with backoff on
// transport failure.
func (se *SyncEngine) SyncShare(ctx context.Context, shareUid string) (result *SyncResult, err error) {
	err = se.withBackoff(ctx, func() (cycleErr error) {
		result, cycleErr = se.syncShareOnce(ctx, shareUid)
		return
	})
	return
}

// withBackoff retries fn on RemoteUnavailable with exponential backoff.
// Every other error surfaces immediately.
func (se *SyncEngine) withBackoff(ctx context.Context, fn func() error) (err error) {
	var backoff = se.options.InitialBackoff
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return
		}
		var remoteErr *api.RemoteUnavailableError
		if !errors.As(err, &remoteErr) || attempt >= se.options.MaxAttempts {
			return
		}
		api.GetLogger().Info("Sync cycle failed, backing off",
			zap.Int("attempt", attempt), zap.Duration("backoff", backoff), zap.Error(err))
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (se *SyncEngine) failureState(err error) SyncState {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return SyncState_Cancelled
	}
	return SyncState_Failed
}

func (se *SyncEngine) syncShareOnce(ctx context.Context, shareUid string) (result *SyncResult, err error) {
	defer func() {
		if err != nil {
			var state = se.failureState(err)
			se.setState(shareUid, state)
			se.emit(SyncEvent{ShareUid: shareUid, State: state, Err: err})
		}
	}()

	se.setState(shareUid, SyncState_Fetching)
	var revisions []*RemoteItemRevision
	var page = 0
	for {
		if err = ctx.Err(); err != nil {
			return
		}
		var response *ItemRevisionsPage
		if response, err = se.vault.remote.GetItemRevisions(ctx, shareUid, page, se.options.PageSize); err != nil {
			err = api.NewRemoteUnavailableError(err)
			return
		}
		revisions = append(revisions, response.Revisions...)
		if len(response.Revisions) < se.options.PageSize || int64(len(revisions)) >= response.Total {
			break
		}
		page++
	}

	se.setState(shareUid, SyncState_Diffing)
	var localRevisions = make(map[string]int64)
	if err = se.vault.vaultStorage.Items().GetLinksForSubjects([]string{shareUid}, func(row IStorageItem) bool {
		localRevisions[row.ItemUid()] = row.Revision()
		return true
	}); err != nil {
		return
	}
	var toInsert []*RemoteItemRevision
	var toUpdate []*RemoteItemRevision
	var remoteUids = api.NewSet[string]()
	for _, revision := range revisions {
		remoteUids.Add(revision.ItemUid)
		var localRevision, ok = localRevisions[revision.ItemUid]
		if !ok {
			toInsert = append(toInsert, revision)
		} else if revision.Revision > localRevision {
			toUpdate = append(toUpdate, revision)
		}
	}
	var toDelete []string
	for itemUid := range localRevisions {
		if !remoteUids.Has(itemUid) {
			toDelete = append(toDelete, itemUid)
		}
	}

	// uncommitted data must not reach the cache after cancellation
	if err = ctx.Err(); err != nil {
		return
	}
	se.setState(shareUid, SyncState_Applying)
	var inserted, updated int
	var skipped []error
	if inserted, skipped, err = se.vault.storeItemRevisions(ctx, shareUid, toInsert); err != nil {
		return
	}
	var updateSkipped []error
	if updated, updateSkipped, err = se.vault.storeItemRevisions(ctx, shareUid, toUpdate); err != nil {
		return
	}
	skipped = append(skipped, updateSkipped...)
	if len(toDelete) > 0 {
		if err = se.vault.removeItems(shareUid, toDelete); err != nil {
			return
		}
	}

	se.setState(shareUid, SyncState_Idle)
	result = &SyncResult{
		ShareUid: shareUid,
		Inserted: inserted,
		Updated:  updated,
		Deleted:  len(toDelete),
		Skipped:  len(skipped),
	}
	se.emit(SyncEvent{
		ShareUid: shareUid,
		State:    SyncState_Idle,
		Inserted: result.Inserted,
		Updated:  result.Updated,
		Deleted:  result.Deleted,
		Skipped:  result.Skipped,
	})
	return
}
