package dataset

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrInvalidSplit is returned for a train share outside [0, 1].
var ErrInvalidSplit = errors.New("split share must be between 0 and 1")

// Split shuffles items in place and cuts them at floor(len*share). The first
// part is the train partition.
func Split[T any](items []T, share float64, rng *rand.Rand) (train, val []T, err error) {
	if share < 0 || share > 1 {
		return nil, nil, fmt.Errorf("%w: got %v", ErrInvalidSplit, share)
	}

	shuffle(items, rng)
	cut := int(float64(len(items)) * share)
	return items[:cut], items[cut:], nil
}

func shuffle[T any](items []T, rng *rand.Rand) {
	swap := func(i, j int) { items[i], items[j] = items[j], items[i] }
	if rng != nil {
		rng.Shuffle(len(items), swap)
		return
	}
	rand.Shuffle(len(items), swap)
}
