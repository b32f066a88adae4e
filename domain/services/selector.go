package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// maxSelectionAttempts bounds rejection sampling; each attempt is rejected with probability below n/2^64
const maxSelectionAttempts = 64

// SelectWinnerIndex picks an entry index uniformly from [0, n).
//
// The index is derived from HMAC-SHA256 keyed by the settlement beacon over the
// committed server seed, round id, entry count and an attempt counter. Draws
// outside the largest multiple of n are rejected so every entry has exactly
// probability 1/n. Anyone holding the revealed seed and beacon can recompute it.
func SelectWinnerIndex(beacon, serverSeed []byte, roundID int64, n int) (int, error) {
	if n <= 0 {
		return 0, errors.New("cannot select from an empty round")
	}
	if len(beacon) == 0 {
		return 0, errors.New("beacon is empty")
	}

	count := uint64(n)
	excess := -count % count // 2^64 mod n
	limit := math.MaxUint64 - excess

	mac := hmac.New(sha256.New, beacon)
	var suffix [24]byte
	binary.BigEndian.PutUint64(suffix[0:8], uint64(roundID))
	binary.BigEndian.PutUint64(suffix[8:16], count)

	for attempt := uint64(0); attempt < maxSelectionAttempts; attempt++ {
		binary.BigEndian.PutUint64(suffix[16:24], attempt)

		mac.Reset()
		mac.Write(serverSeed)
		mac.Write(suffix[:])
		sum := mac.Sum(nil)

		value := binary.BigEndian.Uint64(sum[:8])
		if value <= limit {
			return int(value % count), nil
		}
	}

	return 0, fmt.Errorf("failed to select winner after %d attempts", maxSelectionAttempts)
}
