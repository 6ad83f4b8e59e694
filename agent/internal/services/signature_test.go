package services

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverSignerRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	want := strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())

	message := "hello wallet"
	sig, err := crypto.Sign(personalSignDigest(message), key)
	require.NoError(t, err)

	// Raw recovery id form (0/1).
	got, err := RecoverSigner(message, hex.EncodeToString(sig))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Wallet wire form (27/28), with and without the 0x prefix.
	sig[64] += 27
	got, err = RecoverSigner(message, "0x"+hex.EncodeToString(sig))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRecoverSignerDifferentMessage(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())

	sig, err := crypto.Sign(personalSignDigest("message A"), key)
	require.NoError(t, err)

	// A valid signature over different text recovers some other address.
	got, err := RecoverSigner("message B", hex.EncodeToString(sig))
	require.NoError(t, err)
	assert.NotEqual(t, signer, got)
}

func TestRecoverSignerMalformed(t *testing.T) {
	cases := map[string]string{
		"not hex":           "0xzzzz",
		"too short":         "0xdeadbeef",
		"empty":             "",
		"bad recovery byte": "0x" + strings.Repeat("11", 64) + "05",
	}
	for name, sig := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := RecoverSigner("msg", sig)
			assert.ErrorIs(t, err, ErrMalformedSignature)
		})
	}
}

func TestCanonicalAddress(t *testing.T) {
	assert.Equal(t, "0xabc0", CanonicalAddress("  0xABC0 "))
}

func TestIsHexAddress(t *testing.T) {
	assert.True(t, IsHexAddress("0x52908400098527886E0F7030069857D2E4169EE7"))
	assert.False(t, IsHexAddress("52908400098527886E0F7030069857D2E4169EE7X"))
	assert.False(t, IsHexAddress("not-an-address"))
}
