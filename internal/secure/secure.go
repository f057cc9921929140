package secure

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"math/big"
	"strings"
)

const (
	// TokenSize is the raw byte length of generated secrets: 32 bytes = 256 bits,
	// comfortably above the 128-bit floor required for double-submit tokens.
	TokenSize = 32
)

// NewToken returns a base64url-encoded random secret of [TokenSize] bytes.
func NewToken() (string, error) {
	var raw [TokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// RandomText returns a random string of length n drawn from alphabet.
func RandomText(n int, alphabet string) (string, error) {
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// HashAnswer returns the SHA-256 digest of a case-normalized, trimmed answer.
// Used for stored challenge answers so plaintext never persists.
func HashAnswer(answer string) [32]byte {
	return sha256.Sum256([]byte(strings.ToUpper(strings.TrimSpace(answer))))
}

// Equal reports whether two secrets match without leaking the position of the
// first differing byte or the length of either input.
func Equal(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}

// EqualHash compares a candidate answer against a stored answer hash in
// constant time, normalizing the candidate the same way [HashAnswer] does.
func EqualHash(candidate string, stored [32]byte) bool {
	h := HashAnswer(candidate)
	return subtle.ConstantTimeCompare(h[:], stored[:]) == 1
}
