package crypto

import (
	stdcrypto "crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// SessionKeySize is the length in bytes of the AES-256 session key minted
// during the handshake.
const SessionKeySize = 32

// NonceSize is the length in bytes of an AES-GCM nonce (96 bits).
const NonceSize = 12

// Fingerprint returns the hex-encoded SHA-256 digest of a DER-encoded
// SubjectPublicKeyInfo. Clients pin this value out-of-band to authenticate
// the server's handshake response.
func Fingerprint(pubDER []byte) string {
	sum := sha256.Sum256(pubDER)
	return hex.EncodeToString(sum[:])
}

// MarshalPublicKeyDER encodes an RSA public key as DER SPKI.
func MarshalPublicKeyDER(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, wrapErr("marshal public key", err)
	}
	return der, nil
}

// ParsePublicKeyDER decodes a DER SPKI blob into an RSA public key. Clients
// supply this as client_key in SESSION_INIT.
func ParsePublicKeyDER(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, wrapErr("parse public key", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, wrapErr("parse public key", fmt.Errorf("not an RSA key"))
	}
	return rsaPub, nil
}

// GenerateSessionKey mints a fresh 256-bit AES session key.
func GenerateSessionKey() ([]byte, error) {
	key := make([]byte, SessionKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, wrapErr("generate session key", err)
	}
	return key, nil
}

// WrapSessionKey encrypts key bytes under an RSA public key using
// RSA-OAEP with MGF1/SHA-256 and no label.
func WrapSessionKey(pub *rsa.PublicKey, key []byte) ([]byte, error) {
	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return nil, wrapErr("wrap session key", err)
	}
	return ciphertext, nil
}

// UnwrapSessionKey is the client-side inverse of WrapSessionKey; included
// for the benefit of test helpers and the `test` CLI verb, which exercise
// the handshake end to end.
func UnwrapSessionKey(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ciphertext, nil)
	if err != nil {
		return nil, wrapErr("unwrap session key", err)
	}
	return key, nil
}

// Sign produces an RSA-PSS signature (MGF1/SHA-256, salt length 32) over
// the SHA-256 digest of data. The handshake signs the raw AES key bytes.
func Sign(priv *rsa.PrivateKey, data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPSS(rand.Reader, priv, stdcrypto.SHA256, digest[:], &rsa.PSSOptions{SaltLength: 32, Hash: stdcrypto.SHA256})
	if err != nil {
		return nil, wrapErr("sign", err)
	}
	return sig, nil
}

// Verify checks an RSA-PSS signature produced by Sign.
func Verify(pub *rsa.PublicKey, data, sig []byte) error {
	digest := sha256.Sum256(data)
	if err := rsa.VerifyPSS(pub, stdcrypto.SHA256, digest[:], sig, &rsa.PSSOptions{SaltLength: 32, Hash: stdcrypto.SHA256}); err != nil {
		return wrapErr("verify", err)
	}
	return nil
}

// Seal encrypts plaintext with AES-256-GCM under key and nonce, with no
// associated data.
func Seal(key, nonce, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, wrapErr("seal", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, wrapErr("seal", err)
	}
	return gcm.Seal(nil, nonce, plaintext, nil), nil
}

// Open decrypts ciphertext with AES-256-GCM under key and nonce. A tag
// mismatch is reported as ErrTagMismatch wrapped in a *CryptoError.
func Open(key, nonce, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, wrapErr("open", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, wrapErr("open", err)
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, wrapErr("open", ErrTagMismatch)
	}
	return plaintext, nil
}

// MintNonce produces a 96-bit nonce composed of a 64-bit nanosecond
// timestamp in the high bits and 32 random bits in the low bits. It is
// monotonic within a single clock source but uniqueness across the
// session's lifetime is enforced by the nonce ledger (C3), not by this
// function.
func MintNonce() ([]byte, error) {
	var randPart [4]byte
	if _, err := rand.Read(randPart[:]); err != nil {
		return nil, wrapErr("mint nonce", err)
	}

	nonce := make([]byte, NonceSize)
	binary.BigEndian.PutUint64(nonce[0:8], uint64(time.Now().UnixNano()))
	copy(nonce[8:12], randPart[:])
	return nonce, nil
}
