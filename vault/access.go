package vault

import (
	"context"

	"github.com/passvault/passvault-sdk-golang/api"
	"github.com/passvault/passvault-sdk-golang/internal/database"
)

// Plan is the user's entitlement snapshot. A nil limit means unlimited; the
// wire encodes that as -1.
type Plan struct {
	VaultLimit *int64
	AliasLimit *int64
	TotpLimit  *int64
	TrialEnd   *int64
}

func planLimit(value int64) *int64 {
	if value < 0 {
		return nil
	}
	return &value
}

// RefreshAccess pulls the entitlement snapshot from the remote store and
// caches it. Item and share logic never mutates it.
func (v *Vault) RefreshAccess(ctx context.Context) (plan *Plan, err error) {
	var access *RemoteAccess
	if access, err = v.remote.GetAccess(ctx); err != nil {
		err = api.NewRemoteUnavailableError(err)
		return
	}
	v.mutex.Lock()
	err = v.vaultStorage.Access().Store(&database.AccessStorage{
		VaultLimit_: access.VaultLimit,
		AliasLimit_: access.AliasLimit,
		TotpLimit_:  access.TotpLimit,
		TrialEnd_:   access.TrialEnd,
	})
	v.mutex.Unlock()
	if err != nil {
		return
	}
	return v.GetPlan()
}

// GetPlan returns the cached entitlement snapshot, nil when none was
// refreshed yet.
func (v *Vault) GetPlan() (plan *Plan, err error) {
	var row IStorageAccess
	if row, err = v.vaultStorage.Access().Load(); err != nil {
		return
	}
	if row == nil {
		return
	}
	plan = &Plan{
		VaultLimit: planLimit(row.VaultLimit()),
		AliasLimit: planLimit(row.AliasLimit()),
		TotpLimit:  planLimit(row.TotpLimit()),
		TrialEnd:   planLimit(row.TrialEnd()),
	}
	return
}
