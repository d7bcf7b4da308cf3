package sampling

import "math/rand/v2"

// RandomSource supplies the uniform draws used by every sampling stage. A source is
// owned by a single sampling call and is not safe for concurrent use.
type RandomSource interface {
	// IntN returns a uniform integer in [0, n). It panics if n <= 0.
	IntN(n int) int
}

// defaultSeed replaces a zero seed so that the zero value still yields a fixed stream.
const defaultSeed int64 = 1

// NewRandomSource returns a deterministic PCG-backed source for seed.
// A seed of zero is mapped to a fixed non-zero default.
func NewRandomSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = defaultSeed
	}
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, mix(s)))
}

// DeriveSeed mixes parent and a stream number into an independent seed, so that
// epochs and batches sampled concurrently each get their own reproducible stream.
func DeriveSeed(parent int64, stream uint64) int64 {
	return int64(mix(uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)))
}

// mix is the SplitMix64 finalizer.
func mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
