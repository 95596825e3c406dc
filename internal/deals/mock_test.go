package deals

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/cheapeats/internal/generate"
	"github.com/sells-group/cheapeats/internal/model"
	"github.com/sells-group/cheapeats/internal/normalize"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *mockGenerator) Generate(ctx context.Context, loc model.Location, count int) (generate.Batch, error) {
	args := m.Called(ctx, loc, count)
	return args.Get(0).(generate.Batch), args.Error(1)
}

func (m *mockGenerator) GenerateForChains(ctx context.Context, chains []string, loc model.Location) ([]model.Candidate, error) {
	args := m.Called(ctx, chains, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Candidate), args.Error(1)
}

// memStore is an in-memory DealStore.
type memStore struct {
	mu      sync.Mutex
	active  []model.Candidate
	saved   []model.StoredDeal
	last    string
	readErr error
	saveErr error
	saves   int
}

func (s *memStore) ActiveDeals(context.Context) ([]model.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.active, nil
}

func (s *memStore) SaveDeals(_ context.Context, deals []model.StoredDeal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.saved = deals
	return nil
}

func (s *memStore) LastAdded(context.Context) (string, error) {
	return s.last, nil
}

func (s *memStore) Close() error { return nil }

type fixedRand struct{}

func (fixedRand) IntN(int) int     { return 5 }
func (fixedRand) Float64() float64 { return 0.5 }

var testNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func testNormalizer() *normalize.Normalizer {
	var mu sync.Mutex
	i := 0
	return normalize.New(
		normalize.WithClock(normalize.ClockFunc(func() time.Time { return testNow })),
		normalize.WithIDs(normalize.IDFunc(func() string {
			mu.Lock()
			defer mu.Unlock()
			i++
			return fmt.Sprintf("deal-%d", i)
		})),
		normalize.WithRand(fixedRand{}),
	)
}

func newTestService(st *memStore, gen Generator, cfg Config) *Service {
	return New(st, gen, cfg,
		WithNormalizer(testNormalizer()),
		WithClock(normalize.ClockFunc(func() time.Time { return testNow })),
	)
}
