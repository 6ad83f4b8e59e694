package services

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// RecoverSigner recovers the wallet address that produced an EIP-191
// personal-sign signature over message. The returned address is the
// lower-cased hex form used everywhere in the system. Stateless.
func RecoverSigner(message string, signature string) (string, error) {
	sig, err := decodeSignature(signature)
	if err != nil {
		return "", err
	}

	digest := personalSignDigest(message)
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()), nil
}

// IsHexAddress reports whether s looks like a 0x-prefixed 20-byte address.
func IsHexAddress(s string) bool {
	return common.IsHexAddress(s)
}

// CanonicalAddress lower-cases a hex address into its stored form.
func CanonicalAddress(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func decodeSignature(signature string) ([]byte, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(signature), "0x")
	sig, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: not hex", ErrMalformedSignature)
	}
	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedSignature, crypto.SignatureLength, len(sig))
	}
	// Wallets emit V as 27/28; secp256k1 recovery wants 0/1.
	if sig[64] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return nil, fmt.Errorf("%w: invalid recovery id", ErrMalformedSignature)
	}
	return sig, nil
}

// personalSignDigest hashes the message under the EIP-191 prefix, matching
// what eth_sign/personal_sign implementations hash on the wallet side.
func personalSignDigest(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}
