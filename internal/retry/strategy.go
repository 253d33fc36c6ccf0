package retry

import (
	"math"
	"math/bits"
	"math/rand"
	"time"

	"golang.org/x/exp/constraints"
)

type Strategy interface {
	// Sleep returns the delay before retry number n and whether the retry
	// budget is exhausted.
	Sleep(n uint) (time.Duration, bool)
}

type never struct{}

func NewNever() Strategy {
	return never{}
}

func (never) Sleep(uint) (time.Duration, bool) {
	return 0, true
}

// Entropy returns a value in [0, n). It turns the computed ceiling into a
// jittered delay.
type Entropy func(n int64) int64

type BackOffConfig struct {
	Base       time.Duration
	Max        time.Duration
	MaxRetries uint
	Entropy    Entropy
}

type exponentialBackOff struct {
	config BackOffConfig
}

func NewExponentialBackOff(config BackOffConfig) Strategy {
	if config.Entropy == nil {
		config.Entropy = fullJitter
	}
	return &exponentialBackOff{
		config: config,
	}
}

func (eb *exponentialBackOff) Sleep(n uint) (time.Duration, bool) {
	if n >= eb.config.MaxRetries {
		return 0, true
	}
	return time.Duration(eb.config.Entropy(clamp(ceiling(eb.config.Base, n), 0, int64(eb.config.Max)))), false
}

// ceiling computes base * 2^n saturating at math.MaxInt64.
func ceiling(base time.Duration, n uint) int64 {
	if base <= 0 {
		return 0
	}
	if n >= 63 {
		return math.MaxInt64
	}
	hi, lo := bits.Mul64(uint64(base), 1<<n)
	if hi != 0 || lo > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(lo)
}

func fullJitter(n int64) int64 {
	if n <= 0 {
		return 0
	}
	return rand.Int63n(n)
}

func clamp[T constraints.Ordered](v T, lo T, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
