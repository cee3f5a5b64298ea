package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Clock returns the current instant.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// Shuffler permutes question IDs in place.
type Shuffler interface {
	Shuffle(ids []int64) error
}

// CryptoShuffler is a Fisher-Yates shuffle drawing from crypto/rand, so each
// permutation is equally likely and unpredictable to students.
type CryptoShuffler struct{}

func (CryptoShuffler) Shuffle(ids []int64) error {
	for i := len(ids) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("draw random index: %w", err)
		}
		j := int(n.Int64())
		ids[i], ids[j] = ids[j], ids[i]
	}
	return nil
}
