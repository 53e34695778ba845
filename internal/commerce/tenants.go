package commerce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/commerce-bot/internal/core/error"
	"github.com/supabase-community/supabase-go"
)

// MemoryTenants is a static tenant directory.
type MemoryTenants struct {
	mu      sync.RWMutex
	tenants map[string]model.Tenant
}

func NewMemoryTenants(tenants ...model.Tenant) *MemoryTenants {
	m := &MemoryTenants{tenants: make(map[string]model.Tenant, len(tenants))}
	for _, t := range tenants {
		m.tenants[t.ID] = t
	}
	return m
}

func (m *MemoryTenants) Put(t model.Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.ID] = t
}

func (m *MemoryTenants) Resolve(ctx context.Context, tenantID string) (*model.Tenant, error) {
	m.mu.RLock()
	t, ok := m.tenants[tenantID]
	m.mu.RUnlock()
	if !ok {
		return nil, errx.NotFound("tenant not found")
	}
	if !t.Active {
		return nil, errx.Validation(model.CodeInvalidTenant, "tenant is not active")
	}
	return &t, nil
}

// SupabaseConfig holds the tenant directory connection.
type SupabaseConfig struct {
	URL      string        `envconfig:"SUPABASE_URL"`
	APIKey   string        `envconfig:"SUPABASE_API_KEY"`
	CacheTTL time.Duration `envconfig:"SUPABASE_CACHE_TTL" default:"5m"`
}

type tenantRow struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Active     bool   `json:"active"`
	CatalogURL string `json:"catalog_url"`
	Currency   string `json:"currency"`
}

type cachedTenant struct {
	tenant    *model.Tenant
	expiresAt time.Time
}

// SupabaseTenants resolves tenants from the "tenants" table with a TTL cache.
type SupabaseTenants struct {
	client   *supabase.Client
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[string]cachedTenant
}

func NewSupabaseTenants(cfg SupabaseConfig) (*SupabaseTenants, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	client, err := supabase.NewClient(cfg.URL, cfg.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &SupabaseTenants{client: client, cacheTTL: cfg.CacheTTL, cache: make(map[string]cachedTenant)}, nil
}

func (s *SupabaseTenants) Resolve(ctx context.Context, tenantID string) (*model.Tenant, error) {
	s.mu.RLock()
	c, ok := s.cache[tenantID]
	s.mu.RUnlock()
	if !ok || time.Now().After(c.expiresAt) {
		var rows []tenantRow
		_, err := s.client.From("tenants").
			Select("*", "", false).
			Eq("id", tenantID).
			ExecuteTo(&rows)
		if err != nil {
			return nil, errx.Upstream(err, "tenant directory unavailable")
		}
		if len(rows) == 0 {
			return nil, errx.NotFound("tenant not found")
		}
		r := rows[0]
		c = cachedTenant{
			tenant:    &model.Tenant{ID: r.ID, Name: r.Name, Active: r.Active, CatalogURL: r.CatalogURL, Currency: r.Currency},
			expiresAt: time.Now().Add(s.cacheTTL),
		}
		s.mu.Lock()
		s.cache[tenantID] = c
		s.mu.Unlock()
	}
	if !c.tenant.Active {
		return nil, errx.Validation(model.CodeInvalidTenant, "tenant is not active")
	}
	t := *c.tenant
	return &t, nil
}

var (
	_ TenantDirectory = (*MemoryTenants)(nil)
	_ TenantDirectory = (*SupabaseTenants)(nil)
)
