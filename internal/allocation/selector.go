package allocation

import (
	"math/rand"
	"sort"
	"time"
)

// Selector draws members for an event when more have registered than can
// attend. Selection is random by design: weights bias the draw, they never
// guarantee it.
type Selector struct {
	rng *rand.Rand
}

func NewSelector() *Selector {
	return &Selector{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeededSelector pins the random source, for tests
func NewSeededSelector(seed int64) *Selector {
	return &Selector{rng: rand.New(rand.NewSource(seed))}
}

// SelectUniform draws n members uniformly without replacement
func (s *Selector) SelectUniform(ids []string, n int) []string {
	if n >= len(ids) {
		return append([]string(nil), ids...)
	}

	shuffled := append([]string(nil), ids...)
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}

// SelectWeighted draws n members without replacement, each draw biased by
// the member's weight. Weights are first shifted so the minimum is exactly 1
// and normalized to sum to 1, keeping the draw comparable to the historical
// tie-break policy; each draw then binary-searches the cumulative weights
// and removes the winner.
func (s *Selector) SelectWeighted(weights map[string]float64, n int) []string {
	if n <= 0 || len(weights) == 0 {
		return nil
	}

	ids := make([]string, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if n >= len(ids) {
		return ids
	}

	probabilities := normalize(weights, ids)

	selected := make([]string, 0, n)
	for len(selected) < n {
		cumulative := make([]float64, len(ids))
		total := 0.0
		for i, id := range ids {
			total += probabilities[id]
			cumulative[i] = total
		}

		u := s.rng.Float64() * total
		idx := sort.SearchFloat64s(cumulative, u)
		if idx >= len(ids) {
			idx = len(ids) - 1
		}

		selected = append(selected, ids[idx])
		ids = append(ids[:idx], ids[idx+1:]...)
	}

	return selected
}

// normalize shifts weights so the minimum is 1, then divides by the sum so
// they form a probability distribution.
func normalize(weights map[string]float64, ids []string) map[string]float64 {
	min := weights[ids[0]]
	for _, id := range ids {
		if weights[id] < min {
			min = weights[id]
		}
	}

	offset := 0.0
	if min < 1 {
		offset = 1 - min
	}

	sum := 0.0
	shifted := make(map[string]float64, len(ids))
	for _, id := range ids {
		shifted[id] = weights[id] + offset
		sum += shifted[id]
	}

	for id := range shifted {
		shifted[id] /= sum
	}
	return shifted
}
