package auth

import (
	"crypto/ecdh"
	"crypto/rsa"
	"sync"

	"github.com/passvault/passvault-sdk-golang/api"
)

// sessionKeyInfo separates the session symmetric key from any other key
// expanded from the same device-protected key.
const sessionKeyInfo = "session symmetric key"

// ISessionKeyring owns the master symmetric key for one unlocked session plus
// the user's private keys used to unwrap server-issued share keys. Key
// material is read-shared by decrypt operations and written only here.
type ISessionKeyring interface {
	Username() string
	SymmetricKey() ([]byte, error)
	RsaPrivateKey() *rsa.PrivateKey
	EcPrivateKey() *ecdh.PrivateKey
	Wipe()
}

type KeyringOptions struct {
	Username      string
	RsaPrivateKey *rsa.PrivateKey
	EcPrivateKey  *ecdh.PrivateKey
}

// NewSessionKeyring derives the session symmetric key from a device-protected
// key. The keyring is an explicit handle passed to whoever needs it; it is
// never stored in a package variable.
func NewSessionKeyring(deviceKey []byte, salt []byte, options *KeyringOptions) (keyring ISessionKeyring, err error) {
	if len(deviceKey) == 0 {
		err = api.NewKeyUnavailableError()
		return
	}
	var symmetricKey []byte
	if symmetricKey, err = api.DeriveSessionKey(deviceKey, salt, sessionKeyInfo); err != nil {
		return
	}
	var sk = &sessionKeyring{
		symmetricKey: symmetricKey,
	}
	if options != nil {
		sk.username = options.Username
		sk.rsaPrivateKey = options.RsaPrivateKey
		sk.ecPrivateKey = options.EcPrivateKey
	}
	keyring = sk
	return
}

type sessionKeyring struct {
	mutex         sync.RWMutex
	username      string
	symmetricKey  []byte
	rsaPrivateKey *rsa.PrivateKey
	ecPrivateKey  *ecdh.PrivateKey
}

func (sk *sessionKeyring) Username() string {
	return sk.username
}

func (sk *sessionKeyring) SymmetricKey() (key []byte, err error) {
	sk.mutex.RLock()
	defer sk.mutex.RUnlock()
	if sk.symmetricKey == nil {
		err = api.NewKeyUnavailableError()
		return
	}
	key = sk.symmetricKey
	return
}

func (sk *sessionKeyring) RsaPrivateKey() *rsa.PrivateKey {
	sk.mutex.RLock()
	defer sk.mutex.RUnlock()
	return sk.rsaPrivateKey
}

func (sk *sessionKeyring) EcPrivateKey() *ecdh.PrivateKey {
	sk.mutex.RLock()
	defer sk.mutex.RUnlock()
	return sk.ecPrivateKey
}

// Wipe zeroes the symmetric key and drops the private keys. Subsequent
// SymmetricKey calls fail until a new keyring is created.
func (sk *sessionKeyring) Wipe() {
	sk.mutex.Lock()
	defer sk.mutex.Unlock()
	for i := range sk.symmetricKey {
		sk.symmetricKey[i] = 0
	}
	sk.symmetricKey = nil
	sk.rsaPrivateKey = nil
	sk.ecPrivateKey = nil
}
