// Package modelsel measures generalization and tunes hyperparameters for
// estimators through k-fold cross-validation. It drives any model.Estimator
// and never looks inside the models it evaluates.
package modelsel

import (
	"fmt"
	"math/rand"
	"time"
)

// Fold is one train/test partition of sample indices.
type Fold struct {
	Train []int
	Test  []int
}

// KFold splits n samples into k folds. Every sample lands in exactly one
// test set; the first n mod k folds carry one extra test sample.
type KFold struct {
	// K is the number of folds. Zero means 5.
	K int

	// Shuffle permutes sample order before folding.
	Shuffle bool

	// Rand drives shuffling; nil uses a time-seeded source.
	Rand *rand.Rand
}

// Split partitions the indices 0..n-1 into folds.
func (kf KFold) Split(n int) ([]Fold, error) {
	k := kf.K
	if k == 0 {
		k = 5
	}
	if k < 2 {
		return nil, fmt.Errorf("need at least 2 folds, got %d", k)
	}
	if n < k {
		return nil, fmt.Errorf("cannot split %d samples into %d folds", n, k)
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if kf.Shuffle {
		rng := kf.Rand
		if rng == nil {
			rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	}

	folds := make([]Fold, k)
	start := 0
	for i := 0; i < k; i++ {
		size := n / k
		if i < n%k {
			size++
		}
		test := idx[start : start+size]
		train := make([]int, 0, n-size)
		train = append(train, idx[:start]...)
		train = append(train, idx[start+size:]...)
		folds[i] = Fold{Train: train, Test: test}
		start += size
	}

	return folds, nil
}
