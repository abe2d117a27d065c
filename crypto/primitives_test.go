package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agonych/udpchat-ai/crypto/keys"
)

func TestWrapAndUnwrapSessionKey(t *testing.T) {
	priv, err := keys.Generate()
	require.NoError(t, err)

	sessionKey, err := GenerateSessionKey()
	require.NoError(t, err)

	wrapped, err := WrapSessionKey(&priv.PublicKey, sessionKey)
	require.NoError(t, err)

	unwrapped, err := UnwrapSessionKey(priv, wrapped)
	require.NoError(t, err)
	assert.Equal(t, sessionKey, unwrapped)
}

func TestSignAndVerify(t *testing.T) {
	priv, err := keys.Generate()
	require.NoError(t, err)

	sessionKey, err := GenerateSessionKey()
	require.NoError(t, err)

	sig, err := Sign(priv, sessionKey)
	require.NoError(t, err)
	require.NoError(t, Verify(&priv.PublicKey, sessionKey, sig))

	tampered := append([]byte(nil), sessionKey...)
	tampered[0] ^= 0xFF
	assert.Error(t, Verify(&priv.PublicKey, tampered, sig))
}

func TestSealOpenRoundTrip(t *testing.T) {
	key, err := GenerateSessionKey()
	require.NoError(t, err)
	nonce, err := MintNonce()
	require.NoError(t, err)

	plaintext := []byte(`{"type":"HELLO"}`)
	ciphertext, err := Seal(key, nonce, plaintext)
	require.NoError(t, err)

	opened, err := Open(key, nonce, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	key, err := GenerateSessionKey()
	require.NoError(t, err)
	nonce, err := MintNonce()
	require.NoError(t, err)

	ciphertext, err := Seal(key, nonce, []byte("hello"))
	require.NoError(t, err)
	ciphertext[0] ^= 0xFF

	_, err = Open(key, nonce, ciphertext)
	require.Error(t, err)
	var cerr *CryptoError
	require.ErrorAs(t, err, &cerr)
}

func TestMintNonceUniqueAndSized(t *testing.T) {
	n1, err := MintNonce()
	require.NoError(t, err)
	n2, err := MintNonce()
	require.NoError(t, err)

	assert.Len(t, n1, NonceSize)
	assert.NotEqual(t, n1, n2)
}

func TestFingerprintIsDeterministic(t *testing.T) {
	priv, err := keys.Generate()
	require.NoError(t, err)
	der, err := MarshalPublicKeyDER(&priv.PublicKey)
	require.NoError(t, err)

	assert.Equal(t, Fingerprint(der), Fingerprint(der))
	assert.Len(t, Fingerprint(der), 64) // hex SHA-256
}
