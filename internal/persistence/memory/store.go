// Package memory is an in-process document case store used in development
// mode and by tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/fieldservice-scheduler/internal/persistence"
)

// Store keeps cases, customers and technician profiles in maps guarded by
// a single lock. Values are copied in and out.
type Store struct {
	mu        sync.RWMutex
	cases     map[string]persistence.Case
	customers map[string]persistence.Customer
	profiles  map[string]persistence.TechnicianProfile
	now       func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		cases:     make(map[string]persistence.Case),
		customers: make(map[string]persistence.Customer),
		profiles:  make(map[string]persistence.TechnicianProfile),
		now:       time.Now,
	}
}

var _ persistence.DocumentStore = (*Store)(nil)

// --- CaseRepository implementation ---

// InsertCase stores a new case, assigning an id and timestamps when absent.
func (s *Store) InsertCase(_ context.Context, c persistence.Case) (persistence.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := s.cases[c.ID]; ok {
		return persistence.Case{}, persistence.ErrDuplicate
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}

	s.cases[c.ID] = c
	return c, nil
}

// GetCase retrieves a case by id.
func (s *Store) GetCase(_ context.Context, id string) (persistence.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cases[id]
	if !ok {
		return persistence.Case{}, persistence.ErrNotFound
	}
	return c, nil
}

// UpdateCase overwrites the fields named by update. Last write wins.
func (s *Store) UpdateCase(_ context.Context, id string, update persistence.CaseUpdate) (persistence.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[id]
	if !ok {
		return persistence.Case{}, persistence.ErrNotFound
	}
	if update.UpdatedAt.IsZero() {
		update.UpdatedAt = s.now().UTC()
	}
	c = c.Apply(update)
	s.cases[id] = c
	return c, nil
}

// DeleteCase removes a case.
func (s *Store) DeleteCase(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cases[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.cases, id)
	return nil
}

// ListCasesByIDs returns the cases that exist among ids, in input order.
func (s *Store) ListCasesByIDs(_ context.Context, ids []string) ([]persistence.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool, len(ids))
	result := make([]persistence.Case, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if c, ok := s.cases[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

// ListCasesByCustomer returns a customer's cases oldest first.
func (s *Store) ListCasesByCustomer(_ context.Context, customerID string) ([]persistence.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []persistence.Case
	for _, c := range s.cases {
		if c.CustomerID == customerID {
			result = append(result, c)
		}
	}
	sortCases(result)
	return result, nil
}

// ListCases returns every case oldest first.
func (s *Store) ListCases(_ context.Context) ([]persistence.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]persistence.Case, 0, len(s.cases))
	for _, c := range s.cases {
		result = append(result, c)
	}
	sortCases(result)
	return result, nil
}

func sortCases(cases []persistence.Case) {
	sort.Slice(cases, func(i, j int) bool {
		if !cases[i].CreatedAt.Equal(cases[j].CreatedAt) {
			return cases[i].CreatedAt.Before(cases[j].CreatedAt)
		}
		return cases[i].ID < cases[j].ID
	})
}

// --- CustomerRepository implementation ---

// UpsertCustomer inserts or replaces a customer document.
func (s *Store) UpsertCustomer(_ context.Context, customer persistence.Customer) (persistence.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	if customer.UpdatedAt.IsZero() {
		customer.UpdatedAt = s.now().UTC()
	}
	customer.FollowUpAt = cloneTime(customer.FollowUpAt)
	customer.LastContactAt = cloneTime(customer.LastContactAt)

	s.customers[customer.ID] = customer
	return customer, nil
}

// GetCustomer retrieves a customer by id.
func (s *Store) GetCustomer(_ context.Context, id string) (persistence.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return persistence.Customer{}, persistence.ErrNotFound
	}
	return cloneCustomer(customer), nil
}

// ListCustomers returns all customers ordered by id.
func (s *Store) ListCustomers(_ context.Context) ([]persistence.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]persistence.Customer, 0, len(s.customers))
	for _, customer := range s.customers {
		result = append(result, cloneCustomer(customer))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// --- ProfileRepository implementation ---

// UpsertTechnicianProfile stores an identity-store profile.
func (s *Store) UpsertTechnicianProfile(_ context.Context, profile persistence.TechnicianProfile) error {
	if strings.TrimSpace(profile.IdentityID) == "" {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.IdentityID] = profile
	return nil
}

// GetTechnicianProfile retrieves a profile by identity id.
func (s *Store) GetTechnicianProfile(_ context.Context, identityID string) (persistence.TechnicianProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[identityID]
	if !ok {
		return persistence.TechnicianProfile{}, persistence.ErrNotFound
	}
	return profile, nil
}

func cloneCustomer(customer persistence.Customer) persistence.Customer {
	customer.FollowUpAt = cloneTime(customer.FollowUpAt)
	customer.LastContactAt = cloneTime(customer.LastContactAt)
	return customer
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}
