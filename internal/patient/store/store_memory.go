package store

import (
	"context"
	"sync"
	"time"

	"medgate/internal/patient/models"
	"medgate/pkg/domain"
	dErrors "medgate/pkg/domain-errors"
	"medgate/pkg/platform/sentinel"
)

// DefaultTxTimeout bounds how long RunInTx waits for the write lock when the
// caller's context carries no deadline.
const DefaultTxTimeout = 5 * time.Second

// InMemoryStore keeps patients in insertion order. Every mutation runs under a
// single global write lock acquired by RunInTx, so concurrent edits of the same
// record never interleave.
type InMemoryStore struct {
	mu       sync.RWMutex
	patients map[domain.PatientID]*models.Patient
	order    []domain.PatientID
	lastID   domain.PatientID

	txLock  chan struct{}
	timeout time.Duration
}

type MemoryOption func(*InMemoryStore)

// WithTxTimeout overrides DefaultTxTimeout.
func WithTxTimeout(d time.Duration) MemoryOption {
	return func(s *InMemoryStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewInMemoryStore(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		patients: make(map[domain.PatientID]*models.Patient),
		txLock:   make(chan struct{}, 1),
		timeout:  DefaultTxTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunInTx serializes fn against every other transaction. Waiting for the lock
// is bounded by the context deadline.
func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	select {
	case s.txLock <- struct{}{}:
	case <-ctx.Done():
		return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "transaction aborted: lock wait exceeded")
	}
	defer func() { <-s.txLock }()

	return fn(ctx)
}

func (s *InMemoryStore) Create(_ context.Context, p *models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	p.ID = s.lastID
	s.patients[p.ID] = p.Clone()
	s.order = append(s.order, p.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.PatientID) (*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *InMemoryStore) List(_ context.Context, filter models.Filter) ([]*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Patient, 0, len(s.order))
	for _, id := range s.order {
		p := s.patients[id]
		if filter.Matches(p) {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

// Update replaces the stored record wholesale. ID and DateAdded are taken from
// the stored copy.
func (s *InMemoryStore) Update(_ context.Context, p *models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.patients[p.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	next := p.Clone()
	next.DateAdded = existing.DateAdded
	s.patients[p.ID] = next
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id domain.PatientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.patients, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
