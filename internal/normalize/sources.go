package normalize

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// IDSource mints deal ids.
type IDSource interface {
	NewID() string
}

// IDFunc adapts a function to IDSource.
type IDFunc func() string

// NewID implements IDSource.
func (f IDFunc) NewID() string { return f() }

// UUIDs mints "deal-<uuid>" ids.
var UUIDs IDSource = IDFunc(func() string { return "deal-" + uuid.NewString() })

// Rand is the subset of *rand.Rand the normalizer uses. Tests supply a
// seeded generator.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// NewRand returns a PCG generator seeded from the given values.
func NewRand(seed1, seed2 uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed1, seed2))
}

// SystemRand returns a generator seeded from the runtime's entropy source.
func SystemRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Locked wraps r so it can be shared between goroutines.
func Locked(r Rand) Rand {
	return &lockedRand{r: r}
}

type lockedRand struct {
	mu sync.Mutex
	r  Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}
