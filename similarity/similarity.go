// Package similarity provides the small numeric kernel shared by vector
// search and decay observability: cosine similarity, k-nearest-neighbour
// selection, and the salience-histogram entropy measure.
package similarity

import (
	"math"
	"sort"
)

// Cosine computes the cosine similarity between two vectors. It returns 0
// when the vectors differ in length or either has zero magnitude, and a
// value in [-1, 1] otherwise.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		fa, fb := float64(a[i]), float64(b[i])
		dot += fa * fb
		na += fa * fa
		nb += fb * fb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Scored pairs an index into the caller's collection with a similarity score.
type Scored struct {
	Index int
	Score float64
}

// KNN returns the k entries most similar to query, in descending score
// order. Vectors without an embedding (nil or empty) are skipped. Ties are
// broken by ascending index so results are deterministic. Returns nil when k
// is not positive or no vector has an embedding.
func KNN(query []float32, vectors [][]float32, k int) []Scored {
	if k <= 0 {
		return nil
	}
	scored := make([]Scored, 0, len(vectors))
	for i, v := range vectors {
		if len(v) == 0 {
			continue
		}
		scored = append(scored, Scored{Index: i, Score: Cosine(query, v)})
	}
	if len(scored) == 0 {
		return nil
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Index < scored[j].Index
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// entropyBuckets is the histogram resolution for Entropy. Salience lives in
// [0, 1]; ten equal bins, last bin inclusive of 1.0.
const entropyBuckets = 10

// Entropy computes the normalised Shannon entropy of a set of salience
// values. The values are bucketed into ten equal bins over [0, 1], the
// entropy is computed in bits and divided by log2(10), and the result is
// clamped to [0, 1]. Empty input yields 0.
func Entropy(salienceValues []float64) float64 {
	if len(salienceValues) == 0 {
		return 0
	}

	var counts [entropyBuckets]int
	for _, v := range salienceValues {
		bucket := int(v * entropyBuckets)
		if bucket < 0 {
			bucket = 0
		}
		if bucket >= entropyBuckets {
			bucket = entropyBuckets - 1
		}
		counts[bucket]++
	}

	total := float64(len(salienceValues))
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		h -= p * math.Log2(p)
	}

	normalised := h / math.Log2(entropyBuckets)
	if normalised < 0 {
		return 0
	}
	if normalised > 1 {
		return 1
	}
	return normalised
}
