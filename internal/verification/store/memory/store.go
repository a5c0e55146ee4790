package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"faceverify/internal/verification/models"
	"faceverify/pkg/platform/sentinel"
)

// Store is an append-only in-memory result log for development and tests.
// Records are cloned on the way in and out so callers never share state
// with the log.
type Store struct {
	mu      sync.RWMutex
	results map[uuid.UUID]*models.VerificationResult
}

func New() *Store {
	return &Store{results: make(map[uuid.UUID]*models.VerificationResult)}
}

// Record appends result. A zero ID is assigned; an existing ID is a conflict.
func (s *Store) Record(_ context.Context, result *models.VerificationResult) (uuid.UUID, error) {
	if result == nil {
		return uuid.Nil, errors.New("result is required")
	}
	c := result.Clone()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.results[c.ID]; exists {
		return uuid.Nil, fmt.Errorf("result %s: %w", c.ID, sentinel.ErrConflict)
	}
	if c.Supersedes != nil {
		if _, ok := s.results[*c.Supersedes]; !ok {
			return uuid.Nil, fmt.Errorf("superseded result %s: %w", *c.Supersedes, sentinel.ErrNotFound)
		}
	}
	s.results[c.ID] = c
	return c.ID, nil
}

func (s *Store) FindByID(_ context.Context, id uuid.UUID) (*models.VerificationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}
