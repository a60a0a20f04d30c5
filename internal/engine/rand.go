package engine

// defaultSeed is the fixed seed every clustering run starts from, so that
// identical inputs produce identical cluster assignments.
const defaultSeed = 42

// randSource is a linear-congruential generator. It exists only for
// reproducible tie-breaking during centroid initialization and must never be
// used for anything security-sensitive. Each run owns its own instance, so
// concurrent runs are isolated by construction.
type randSource struct {
	seed int64
}

const (
	lcgMultiplier = 1103515245
	lcgIncrement  = 12345
	lcgModulus    = 1 << 31
)

func newRandSource() *randSource {
	return &randSource{seed: defaultSeed}
}

// Next returns the next float in [0,1).
func (r *randSource) Next() float64 {
	r.seed = (r.seed*lcgMultiplier + lcgIncrement) % lcgModulus
	return float64(r.seed) / float64(lcgModulus)
}

// Intn returns a deterministic integer in [0,n).
func (r *randSource) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Next() * float64(n))
}
