package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/irfndi/astro-snapshot-go/internal/cache"
	"github.com/irfndi/astro-snapshot-go/internal/ephemeris"
	"github.com/irfndi/astro-snapshot-go/internal/models"
	"github.com/stretchr/testify/mock"
)

// ErrStubFailure is returned by StubProvider for bodies configured to fail.
var ErrStubFailure = errors.New("stub provider failure")

// StubProvider is a deterministic ephemeris.Provider for tests. Longitudes
// holds raw longitudes at every instant except the day before Reference,
// where Previous is used (falling back to Longitudes-1, i.e. direct motion).
type StubProvider struct {
	Longitudes       map[models.Body]float64
	Previous         map[models.Body]float64
	Reference        ephemeris.Instant
	Illum            float64
	FailCurrent      map[models.Body]bool
	FailPrevious     map[models.Body]bool
	FailIllumination bool
	Delay            time.Duration

	longitudeCalls    atomic.Int64
	illuminationCalls atomic.Int64
}

// NewStubProvider creates a stub anchored at date.
func NewStubProvider(date time.Time, longitudes map[models.Body]float64) *StubProvider {
	return &StubProvider{
		Longitudes:   longitudes,
		Previous:     map[models.Body]float64{},
		Reference:    ephemeris.InstantFromDate(date),
		Illum:        0.5,
		FailCurrent:  map[models.Body]bool{},
		FailPrevious: map[models.Body]bool{},
	}
}

func (p *StubProvider) Name() string { return "stub" }

func (p *StubProvider) Longitude(ctx context.Context, body models.Body, at ephemeris.Instant) (float64, error) {
	p.longitudeCalls.Add(1)
	if err := p.wait(ctx); err != nil {
		return 0, err
	}

	previous := at == p.Reference.PreviousDay()
	if previous && p.FailPrevious[body] || !previous && p.FailCurrent[body] {
		return 0, ErrStubFailure
	}
	if previous {
		if lon, ok := p.Previous[body]; ok {
			return lon, nil
		}
		return p.Longitudes[body] - 1, nil
	}
	return p.Longitudes[body], nil
}

func (p *StubProvider) Illumination(ctx context.Context, at ephemeris.Instant) (float64, error) {
	p.illuminationCalls.Add(1)
	if err := p.wait(ctx); err != nil {
		return 0, err
	}
	if p.FailIllumination {
		return 0, ErrStubFailure
	}
	return p.Illum, nil
}

func (p *StubProvider) wait(ctx context.Context) error {
	if p.Delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.Delay):
		return nil
	}
}

// Calls returns the total number of provider calls made so far.
func (p *StubProvider) Calls() int64 {
	return p.longitudeCalls.Load() + p.illuminationCalls.Load()
}

// MemorySnapshotStore is an in-memory cache.SnapshotStore with injectable
// failures.
type MemorySnapshotStore struct {
	mu      sync.Mutex
	entries map[string]*models.Snapshot
	GetErr  error
	PutErr  error
	gets    int
	puts    int
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{entries: make(map[string]*models.Snapshot)}
}

func (s *MemorySnapshotStore) Name() string { return "memory-store" }

func (s *MemorySnapshotStore) Get(_ context.Context, key models.SnapshotKey) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	snapshot, ok := s.entries[key.String()]
	if !ok {
		return nil, cache.ErrSnapshotNotFound
	}
	return snapshot, nil
}

func (s *MemorySnapshotStore) Put(_ context.Context, key models.SnapshotKey, snapshot *models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.PutErr != nil {
		return s.PutErr
	}
	s.entries[key.String()] = snapshot
	return nil
}

// Counts returns the number of Get and Put calls.
func (s *MemorySnapshotStore) Counts() (gets, puts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.puts
}

// Has reports whether key is stored.
func (s *MemorySnapshotStore) Has(key models.SnapshotKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key.String()]
	return ok
}

// MockSnapshotGetter implements SnapshotGetter for testing.
type MockSnapshotGetter struct {
	mock.Mock
}

func (m *MockSnapshotGetter) Get(ctx context.Context, date time.Time, mode models.ZodiacMode) (*models.Snapshot, error) {
	args := m.Called(ctx, date, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Snapshot), args.Error(1)
}
