package api

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

func GetRandomBytes(size int) []byte {
	data := make([]byte, size)
	_, _ = rand.Read(data)
	return data
}

const (
	AesGcmNonceSize = 12
	AesGcmTagSize   = 16
	AesKeySize      = 32
)

// MinSealedSize is the smallest possible AES-GCM output: nonce plus tag with
// an empty plaintext. Anything shorter indicates a failed seal.
const MinSealedSize = AesGcmNonceSize + AesGcmTagSize

// EncryptAesGcm seals data under a 256-bit key. The nonce is prepended to the
// result; aad binds the ciphertext to its encryption domain and must be
// presented verbatim on decrypt.
func EncryptAesGcm(data []byte, key []byte, aad []byte) ([]byte, error) {
	return EncryptAesGcmFull(data, key, nil, aad)
}

func EncryptAesGcmFull(data []byte, key []byte, nonce []byte, aad []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if nonce == nil {
		nonce = GetRandomBytes(AesGcmNonceSize)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	result := gcm.Seal(nonce, nonce, data, aad)
	if len(result) < MinSealedSize {
		return nil, NewCryptoFailureError("seal produced no combined ciphertext")
	}
	return result, nil
}

func DecryptAesGcm(data []byte, key []byte, aad []byte) ([]byte, error) {
	if len(data) < MinSealedSize {
		return nil, NewCryptoFailureError("ciphertext is shorter than nonce and tag")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	result, err := gcm.Open(nil, data[:AesGcmNonceSize], data[AesGcmNonceSize:], aad)
	if err != nil {
		return nil, NewCryptoFailureError("open failed: authentication error")
	}
	return result, nil
}

// DeriveKeyV1 stretches a low-entropy secret with PBKDF2-SHA256.
func DeriveKeyV1(password string, salt []byte, iterations uint32) []byte {
	return pbkdf2.Key([]byte(password), salt, int(iterations), AesKeySize, sha256.New)
}

// DeriveSessionKey expands a device-protected key into the session symmetric
// key with HKDF-SHA256. The info string separates independent session keys
// derived from the same device key.
func DeriveSessionKey(deviceKey []byte, salt []byte, info string) (key []byte, err error) {
	key = make([]byte, AesKeySize)
	if _, err = io.ReadFull(hkdf.New(sha256.New, deviceKey, salt, []byte(info)), key); err != nil {
		key = nil
	}
	return
}

func GenerateAesKey() []byte {
	return GetRandomBytes(AesKeySize)
}

func LoadRsaPrivateKey(privateKeyData []byte) (privateKey *rsa.PrivateKey, err error) {
	return x509.ParsePKCS1PrivateKey(privateKeyData)
}

func UnloadRsaPrivateKey(privateKey *rsa.PrivateKey) []byte {
	return x509.MarshalPKCS1PrivateKey(privateKey)
}

func LoadRsaPublicKey(publicKey []byte) (*rsa.PublicKey, error) {
	return x509.ParsePKCS1PublicKey(publicKey)
}

func UnloadRsaPublicKey(publicKey *rsa.PublicKey) []byte {
	return x509.MarshalPKCS1PublicKey(publicKey)
}

func EncryptRsa(data []byte, publicKey *rsa.PublicKey) ([]byte, error) {
	return rsa.EncryptPKCS1v15(rand.Reader, publicKey, data)
}

func DecryptRsa(data []byte, privateKey *rsa.PrivateKey) (result []byte, err error) {
	return rsa.DecryptPKCS1v15(rand.Reader, privateKey, data)
}

func GenerateRsaKey() (private *rsa.PrivateKey, public *rsa.PublicKey, err error) {
	if private, err = rsa.GenerateKey(rand.Reader, 2048); err == nil {
		public = &private.PublicKey
	}
	return
}

func GenerateEcKey() (private *ecdh.PrivateKey, public *ecdh.PublicKey, err error) {
	if private, err = ecdh.P256().GenerateKey(rand.Reader); err != nil {
		return
	}
	public = private.PublicKey()
	return
}

func LoadEcPrivateKey(data []byte) (*ecdh.PrivateKey, error) {
	return ecdh.P256().NewPrivateKey(data)
}

func LoadEcPublicKey(data []byte) (publicKey *ecdh.PublicKey, err error) {
	return ecdh.P256().NewPublicKey(data)
}

func UnloadEcPrivateKey(private *ecdh.PrivateKey) []byte {
	return private.Bytes()
}

func UnloadEcPublicKey(public *ecdh.PublicKey) []byte {
	return public.Bytes()
}

func EcSharedKey(public1 *ecdh.PublicKey, private2 *ecdh.PrivateKey) (key []byte, err error) {
	if key, err = private2.ECDH(public1); err != nil {
		return
	}
	hash := sha256.New()
	hash.Write(key)
	key = hash.Sum(nil)
	return
}

// EncryptEc seals data for the holder of the matching private key: an
// ephemeral P-256 key agreement followed by AES-GCM. The ephemeral public key
// is prepended to the result.
func EncryptEc(data []byte, public *ecdh.PublicKey) (encrypted []byte, err error) {
	var ePrivate *ecdh.PrivateKey
	var ePublic *ecdh.PublicKey
	if ePrivate, ePublic, err = GenerateEcKey(); err == nil {
		var encryptionKey []byte
		if encryptionKey, err = EcSharedKey(public, ePrivate); err == nil {
			var encData []byte
			if encData, err = EncryptAesGcm(data, encryptionKey, nil); err == nil {
				encrypted = append(UnloadEcPublicKey(ePublic), encData...)
			}
		}
	}
	return
}

const ecPublicKeySize = 65

func DecryptEc(data []byte, private *ecdh.PrivateKey) (decrypted []byte, err error) {
	if len(data) < ecPublicKeySize {
		return nil, NewCryptoFailureError("EC ciphertext is too short")
	}
	var publicKey *ecdh.PublicKey
	if publicKey, err = LoadEcPublicKey(data[:ecPublicKeySize]); err == nil {
		var encryptionKey []byte
		if encryptionKey, err = EcSharedKey(publicKey, private); err == nil {
			decrypted, err = DecryptAesGcm(data[ecPublicKeySize:], encryptionKey, nil)
		}
	}
	return
}
