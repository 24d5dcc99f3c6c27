package workers

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeLength is the fixed length of every redeemable code. QR extraction
// recovers the trailing 11 characters of a scanned payload, so codes must be
// exactly this long.
const CodeLength = 11

// DefaultCodePrefix marks codes provisioned by this system
const DefaultCodePrefix = "BNTY"

const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCodes produces count codes that collide neither with each other
// nor with the existing set. The existing set is loaded once by the caller;
// generation itself never touches storage.
func GenerateCodes(count int, prefix string, existing map[string]struct{}) ([]string, error) {
	if len(prefix) >= CodeLength {
		return nil, fmt.Errorf("prefix %q leaves no room for randomness", prefix)
	}

	suffixLen := CodeLength - len(prefix)
	codes := make([]string, 0, count)
	seen := make(map[string]struct{}, count)

	// Generous bound: collisions are rare, so hitting it means the space
	// for this prefix is close to exhausted.
	maxAttempts := count*10 + 100
	for attempts := 0; len(codes) < count; attempts++ {
		if attempts >= maxAttempts {
			return nil, fmt.Errorf("could not generate %d unique codes after %d attempts", count, attempts)
		}

		suffix, err := randomString(suffixLen)
		if err != nil {
			return nil, fmt.Errorf("failed to generate code suffix: %w", err)
		}
		code := prefix + suffix

		if _, dup := existing[code]; dup {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	return codes, nil
}

func randomString(n int) (string, error) {
	max := big.NewInt(int64(len(codeCharset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeCharset[idx.Int64()]
	}
	return string(b), nil
}
