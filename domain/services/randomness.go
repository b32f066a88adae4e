package services

import (
	"context"
	"crypto/rand"
	"fmt"

	"btclotto/domain/interfaces"
)

// BeaconLength is the size of a settlement beacon
const BeaconLength = 32

// cryptoRandomness draws beacons from the operating system CSPRNG at settlement time
type cryptoRandomness struct{}

// NewCryptoRandomness creates the production randomness source
func NewCryptoRandomness() interfaces.RandomnessSource {
	return cryptoRandomness{}
}

func (cryptoRandomness) Beacon(ctx context.Context) ([]byte, error) {
	beacon := make([]byte, BeaconLength)
	if _, err := rand.Read(beacon); err != nil {
		return nil, fmt.Errorf("failed to read beacon: %w", err)
	}
	return beacon, nil
}
