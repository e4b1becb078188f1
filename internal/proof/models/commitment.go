package models

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	id "zeropass/pkg/domain"
)

// NonceSize is the length in bytes of the per-proof nonce.
const NonceSize = 16

// NewNonce returns NonceSize random bytes.
func NewNonce() ([]byte, error) {
	b := make([]byte, NonceSize)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Commit returns the hex Keccak-256 over
// credential_id|wallet|claims_digest|hex(nonce).
func Commit(credID id.CredentialID, wallet id.WalletAddress, claimsDigest string, nonce []byte) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(strings.Join([]string{
		string(credID),
		string(wallet),
		claimsDigest,
		hex.EncodeToString(nonce),
	}, "|")))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}
