package lottery

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NumberSource supplies random integers for the draw. Draws are directly
// exploitable if predictable, so the production implementation must be
// cryptographically secure.
type NumberSource interface {
	// Pick returns a uniform random integer in [min, max] inclusive.
	Pick(min, max int) (int, error)
}

// CryptoSource picks numbers with crypto/rand. rand.Int is uniform over the
// range, so there is no modulo bias.
type CryptoSource struct{}

func (CryptoSource) Pick(min, max int) (int, error) {
	if min > max {
		return 0, fmt.Errorf("invalid range [%d, %d]", min, max)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min+1)))
	if err != nil {
		return 0, fmt.Errorf("entropy source: %w", err)
	}
	return int(n.Int64()) + min, nil
}

// DrawNumbers produces count distinct integers in [min, max] by rejection
// sampling: duplicates are discarded and redrawn. The returned slice keeps
// draw order, which is meaningful for presentation and stored as-is.
func DrawNumbers(src NumberSource, count, min, max int) ([]int, error) {
	if count > max-min+1 {
		return nil, fmt.Errorf("cannot draw %d distinct numbers from [%d, %d]", count, min, max)
	}

	drawn := make([]int, 0, count)
	seen := make(map[int]bool, count)
	for len(drawn) < count {
		n, err := src.Pick(min, max)
		if err != nil {
			return nil, err
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		drawn = append(drawn, n)
	}
	return drawn, nil
}
