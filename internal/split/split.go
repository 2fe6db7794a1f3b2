package split

import (
	"errors"
	"math/rand"

	"xgbdeploy/internal/data"
)

var ErrEmptyDataset = errors.New("split: dataset vazio")

type Split struct {
	Train []data.Record
	Test  []data.Record
}

// TrainSize is floor(0.7 * n).
func TrainSize(n int) int { return n * 7 / 10 }

// Partition shuffles records with a permutation seeded by seed and cuts it at
// TrainSize. The input slice is left untouched and the result depends only on
// records and seed.
func Partition(records []data.Record, seed int64) (Split, error) {
	n := len(records)
	if n == 0 {
		return Split{}, ErrEmptyDataset
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	cut := TrainSize(n)
	s := Split{
		Train: make([]data.Record, 0, cut),
		Test:  make([]data.Record, 0, n-cut),
	}
	for i, j := range perm {
		if i < cut {
			s.Train = append(s.Train, records[j])
		} else {
			s.Test = append(s.Test, records[j])
		}
	}
	return s, nil
}
