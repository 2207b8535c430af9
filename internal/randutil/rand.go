// Package randutil seeds the board sampling used to build the preflop
// showdown table, so a given --seed always regenerates the same file.
package randutil

import rand "math/rand/v2"

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a single sampling generator for seed
func New(seed int64) *rand.Rand {
	return pcg(uint64(seed))
}

// Stream returns the generator for starting-hand class n. Each class owns
// its stream, so the table does not depend on worker scheduling.
func Stream(seed int64, n int) *rand.Rand {
	return pcg(scramble(uint64(seed)) ^ scramble(uint64(n)*goldenRatio64+1))
}

func pcg(u uint64) *rand.Rand {
	return rand.New(rand.NewPCG(scramble(u), scramble(u+goldenRatio64)))
}

// scramble is the splitmix64 output function
func scramble(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
