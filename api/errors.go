package api

import (
	"fmt"
)

type VaultError struct {
	message string
}

func NewVaultError(message string) *VaultError {
	return &VaultError{
		message: message,
	}
}

func (e *VaultError) Error() string {
	return e.message
}

func (e *VaultError) Message() string {
	return e.message
}

// KeyUnavailableError: no session key has been established (before the first
// unlock or after a wipe). Fatal to the current operation, not retryable.
type KeyUnavailableError struct {
	VaultError
}

func NewKeyUnavailableError() *KeyUnavailableError {
	return &KeyUnavailableError{
		VaultError: VaultError{
			message: "session symmetric key is not available",
		},
	}
}

// MissingKeysError: a share key collection turned out to be empty.
type MissingKeysError struct {
	VaultError
	shareUid string
}

func NewMissingKeysError(shareUid string) *MissingKeysError {
	return &MissingKeysError{
		VaultError: VaultError{
			message: "no share keys available",
		},
		shareUid: shareUid,
	}
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("%s: share \"%s\"", e.message, e.shareUid)
}

func (e *MissingKeysError) ShareUid() string {
	return e.shareUid
}

// CryptoFailureError: a seal or open operation failed. The message never
// carries ciphertext or key material.
type CryptoFailureError struct {
	VaultError
}

func NewCryptoFailureError(message string) *CryptoFailureError {
	return &CryptoFailureError{
		VaultError: VaultError{
			message: message,
		},
	}
}

type UnsupportedFormatError struct {
	VaultError
	contentFormatVersion int32
}

func NewUnsupportedFormatError(contentFormatVersion int32) *UnsupportedFormatError {
	return &UnsupportedFormatError{
		VaultError: VaultError{
			message: "unsupported content format version",
		},
		contentFormatVersion: contentFormatVersion,
	}
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s: %d", e.message, e.contentFormatVersion)
}

func (e *UnsupportedFormatError) ContentFormatVersion() int32 {
	return e.contentFormatVersion
}

// CorruptedRecordError: a cache row failed decryption under a key the key
// store can produce.
type CorruptedRecordError struct {
	VaultError
	shareUid string
	itemUid  string
}

func NewCorruptedRecordError(shareUid string, itemUid string) *CorruptedRecordError {
	return &CorruptedRecordError{
		VaultError: VaultError{
			message: "cache record failed decryption",
		},
		shareUid: shareUid,
		itemUid:  itemUid,
	}
}

func (e *CorruptedRecordError) Error() string {
	return fmt.Sprintf("%s: share \"%s\" item \"%s\"", e.message, e.shareUid, e.itemUid)
}

func (e *CorruptedRecordError) ShareUid() string {
	return e.shareUid
}

func (e *CorruptedRecordError) ItemUid() string {
	return e.itemUid
}

// StaleRevisionError: an optimistic write kept losing the lastRevision check
// after the bounded number of refetch attempts.
type StaleRevisionError struct {
	VaultError
	shareUid     string
	itemUid      string
	lastRevision int64
}

func NewStaleRevisionError(shareUid string, itemUid string, lastRevision int64) *StaleRevisionError {
	return &StaleRevisionError{
		VaultError: VaultError{
			message: "item revision is stale",
		},
		shareUid:     shareUid,
		itemUid:      itemUid,
		lastRevision: lastRevision,
	}
}

func (e *StaleRevisionError) Error() string {
	return fmt.Sprintf("%s: share \"%s\" item \"%s\" revision %d", e.message, e.shareUid, e.itemUid, e.lastRevision)
}

func (e *StaleRevisionError) ShareUid() string {
	return e.shareUid
}

func (e *StaleRevisionError) ItemUid() string {
	return e.itemUid
}

func (e *StaleRevisionError) LastRevision() int64 {
	return e.lastRevision
}

// RemoteUnavailableError: any transport-layer failure. The sync engine
// retries the whole cycle with backoff before surfacing it.
type RemoteUnavailableError struct {
	VaultError
	cause error
}

func NewRemoteUnavailableError(cause error) *RemoteUnavailableError {
	return &RemoteUnavailableError{
		VaultError: VaultError{
			message: "remote store unavailable",
		},
		cause: cause,
	}
}

func (e *RemoteUnavailableError) Error() string {
	if e.cause == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %s", e.message, e.cause.Error())
}

func (e *RemoteUnavailableError) Unwrap() error {
	return e.cause
}
