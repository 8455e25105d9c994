package sheets

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"rsvp-bot/internal/models"
)

// CredentialSource yields a tenant's guest store credentials.
type CredentialSource interface {
	Get(tenantID string) (models.Credentials, error)
}

// TenantSource yields tenant records.
type TenantSource interface {
	Get(id string) (models.Tenant, error)
}

// Registry hands out one Gateway per tenant, built on first use.
type Registry struct {
	mu          sync.Mutex
	gateways    map[string]*Gateway
	tenants     TenantSource
	credentials CredentialSource
	cfg         Config
	client      *http.Client
	log         zerolog.Logger
}

func NewRegistry(tenants TenantSource, credentials CredentialSource, cfg Config, log zerolog.Logger) *Registry {
	return &Registry{
		gateways:    make(map[string]*Gateway),
		tenants:     tenants,
		credentials: credentials,
		cfg:         cfg,
		client:      &http.Client{},
		log:         log,
	}
}

// Gateway returns the cached gateway for tenantID, building it if needed.
func (r *Registry) Gateway(tenantID string) (*Gateway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.gateways[tenantID]; ok {
		return g, nil
	}

	tenant, err := r.tenants.Get(tenantID)
	if err != nil {
		return nil, err
	}
	creds, err := r.credentials.Get(tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoCredentials, err)
	}

	g := NewGateway(tenant, creds, r.cfg, r.client, r.log)
	r.gateways[tenantID] = g
	return g, nil
}
