package storage

import (
	"fmt"
	"sync"
	"time"

	"rsvp-bot/internal/models"
)

// TenantStore holds the tenant registry. Tenants are created by admin
// tooling; this store only reads them and toggles Active.
type TenantStore struct {
	mu      sync.RWMutex
	tenants []models.Tenant
	file    jsonFile
}

// NewTenantStore loads the registry from filePath if it exists.
func NewTenantStore(filePath string) (*TenantStore, error) {
	s := &TenantStore{
		tenants: make([]models.Tenant, 0),
		file:    jsonFile{path: filePath},
	}

	if s.file.exists() {
		if err := s.file.load(&s.tenants); err != nil {
			return nil, fmt.Errorf("failed to load tenants: %w", err)
		}
	}

	return s, nil
}

// Get retrieves a tenant by id
func (s *TenantStore) Get(id string) (models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tenants {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Tenant{}, fmt.Errorf("%w: %s", ErrTenantNotFound, id)
}

// All returns every tenant
func (s *TenantStore) All() []models.Tenant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenants := make([]models.Tenant, len(s.tenants))
	copy(tenants, s.tenants)
	return tenants
}

// Active returns the tenants whose events are still being served
func (s *TenantStore) Active() []models.Tenant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Tenant
	for _, t := range s.tenants {
		if t.Active {
			result = append(result, t)
		}
	}
	return result
}

// SetActive toggles a tenant and persists the registry
func (s *TenantStore) SetActive(id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.tenants {
		if t.ID == id {
			s.tenants[i].Active = active
			s.tenants[i].UpdatedAt = time.Now().UTC().Format(time.RFC3339)
			return s.file.save(s.tenants)
		}
	}
	return fmt.Errorf("%w: %s", ErrTenantNotFound, id)
}
