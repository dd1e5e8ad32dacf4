package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	cfotel "github.com/Strob0t/tenantdash/internal/adapter/otel"
	"github.com/Strob0t/tenantdash/internal/domain"
	"github.com/Strob0t/tenantdash/internal/domain/access"
	"github.com/Strob0t/tenantdash/internal/domain/tenant"
	"github.com/Strob0t/tenantdash/internal/port/cache"
	"github.com/Strob0t/tenantdash/internal/port/database"
	"github.com/Strob0t/tenantdash/internal/port/messagequeue"
)

// TenantService manages tenants, their public settings and their themes.
type TenantService struct {
	store   database.Store
	cache   cache.Cache
	events  *EventPublisher
	metrics *cfotel.Metrics

	locks       *keyedMutex
	sf          singleflight.Group
	fence       settingsFence
	settingsTTL time.Duration
	retries     int
}

// NewTenantService creates a TenantService. c may be nil to disable settings
// caching. retries bounds the read-merge-write attempts of UpdateTheme.
func NewTenantService(store database.Store, c cache.Cache, events *EventPublisher, settingsTTL time.Duration, retries int) *TenantService {
	if retries < 1 {
		retries = 1
	}
	return &TenantService{
		store:       store,
		cache:       c,
		events:      events,
		locks:       newKeyedMutex(),
		fence:       settingsFence{gens: make(map[string]uint64), seen: make(map[string]int)},
		settingsTTL: settingsTTL,
		retries:     retries,
	}
}

// SetMetrics attaches metric instruments. nil disables recording.
func (s *TenantService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

func settingsKey(tenantID string) string { return "settings." + tenantID }

// Create validates and creates a new tenant.
func (s *TenantService) Create(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return s.store.CreateTenant(ctx, req)
}

// Get returns a tenant by ID.
func (s *TenantService) Get(ctx context.Context, id string) (*tenant.Tenant, error) {
	return s.store.GetTenant(ctx, id)
}

// settingsEntry is the cached form of a tenant's settings. Version is the
// tenant version the settings were read at.
type settingsEntry struct {
	Version  int             `json:"version"`
	Settings tenant.Settings `json:"settings"`
}

// settingsFence orders cache fills against invalidations. Every
// invalidation bumps the tenant's generation and raises the lowest version
// a cached entry may carry.
type settingsFence struct {
	mu   sync.Mutex
	gens map[string]uint64
	seen map[string]int
}

func (f *settingsFence) generation(tenantID string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gens[tenantID]
}

func (f *settingsFence) advance(tenantID string, version int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gens[tenantID]++
	if version > f.seen[tenantID] {
		f.seen[tenantID] = version
	}
}

// fillable reports whether a load that started at gen and read version may
// still be written to the cache.
func (f *settingsFence) fillable(tenantID string, gen uint64, version int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gens[tenantID] == gen && version >= f.seen[tenantID]
}

func (f *settingsFence) stale(tenantID string, version int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return version < f.seen[tenantID]
}

// GetSettings returns the public settings of a tenant. It is served from the
// cache when possible; concurrent misses for the same tenant share one load.
// A caller whose ctx ends stops waiting without failing the shared load.
func (s *TenantService) GetSettings(ctx context.Context, tenantID string) (*tenant.Settings, error) {
	if !tenant.ValidID(tenantID) {
		return nil, fmt.Errorf("tenant %q: %w", tenantID, domain.ErrNotFound)
	}
	key := settingsKey(tenantID)

	if data, ok := s.cachedSettings(ctx, key); ok {
		var e settingsEntry
		switch err := json.Unmarshal(data, &e); {
		case err != nil:
			slog.WarnContext(ctx, "discarding undecodable cached settings", "tenant_id", tenantID)
		case s.fence.stale(tenantID, e.Version):
			slog.DebugContext(ctx, "discarding stale cached settings", "tenant_id", tenantID, "version", e.Version)
			if err := s.cache.Delete(ctx, key); err != nil {
				slog.WarnContext(ctx, "settings cache delete failed", "tenant_id", tenantID, "error", err)
			}
		default:
			return &e.Settings, nil
		}
	}

	ch := s.sf.DoChan(key, func() (any, error) {
		return s.loadSettings(context.WithoutCancel(ctx), tenantID, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// Each caller decodes its own copy of the shared result.
		var e settingsEntry
		if err := json.Unmarshal(res.Val.([]byte), &e); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
		return &e.Settings, nil
	}
}

// loadSettings reads the tenant from the store and fills the cache unless
// an invalidation happened while the read was in flight.
func (s *TenantService) loadSettings(ctx context.Context, tenantID, key string) ([]byte, error) {
	gen := s.fence.generation(tenantID)
	t, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(settingsEntry{Version: t.Version, Settings: t.Settings()})
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	if s.cache == nil {
		return data, nil
	}
	if !s.fence.fillable(tenantID, gen, t.Version) {
		slog.DebugContext(ctx, "settings changed during load, not caching", "tenant_id", tenantID, "version", t.Version)
		return data, nil
	}
	if err := s.cache.Set(ctx, key, data, s.settingsTTL); err != nil {
		slog.WarnContext(ctx, "settings cache set failed", "tenant_id", tenantID, "error", err)
	}
	return data, nil
}

// invalidateSettings fences off in-flight loads for tenantID and returns
// its cache key. Callers delete the key afterwards.
func (s *TenantService) invalidateSettings(tenantID string, version int) string {
	s.fence.advance(tenantID, version)
	key := settingsKey(tenantID)
	s.sf.Forget(key)
	return key
}

func (s *TenantService) cachedSettings(ctx context.Context, key string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "settings cache get failed", "key", key, "error", err)
		return nil, false
	}
	s.metrics.RecordCacheLookup(ctx, ok)
	return data, ok
}

// UpdateTheme merges patch into the theme of the scope's tenant and returns
// the stored result. The tenant always comes from scope, never from the
// request path.
//
// Updates to one tenant are serialized in-process and committed with a
// version check; a version conflict from another replica causes a re-read
// and re-merge. Nothing is written when patch is invalid.
func (s *TenantService) UpdateTheme(ctx context.Context, scope *access.Scope, patch tenant.Branding) (tenant.Branding, error) {
	if scope == nil || scope.TenantID == "" {
		return tenant.Branding{}, &access.DeniedError{Reason: access.ReasonTenantMismatch}
	}
	if err := patch.Validate(); err != nil {
		return tenant.Branding{}, err
	}
	tenantID := scope.TenantID

	ctx, span := cfotel.StartThemeUpdateSpan(ctx, tenantID, patch.Len())
	defer span.End()

	unlock, err := s.locks.lock(ctx, tenantID)
	if err != nil {
		return tenant.Branding{}, err
	}
	defer unlock()

	for attempt := 1; attempt <= s.retries; attempt++ {
		t, err := s.store.GetTenant(ctx, tenantID)
		if err != nil {
			return tenant.Branding{}, fmt.Errorf("get tenant: %w", err)
		}

		merged := t.Theme.Merge(patch)
		if err := merged.Validate(); err != nil {
			return tenant.Branding{}, err
		}

		version, err := s.store.UpdateTenantTheme(ctx, tenantID, merged, t.Version)
		if errors.Is(err, domain.ErrConflict) {
			slog.DebugContext(ctx, "theme version conflict, retrying",
				"tenant_id", tenantID, "attempt", attempt, "version", t.Version)
			continue
		}
		if err != nil {
			return tenant.Branding{}, fmt.Errorf("update theme: %w", err)
		}

		s.metrics.RecordThemeUpdate(ctx, tenantID, attempt-1)
		s.afterThemeUpdate(ctx, scope, patch, version)
		return merged, nil
	}

	return tenant.Branding{}, fmt.Errorf("update theme after %d attempts: %w", s.retries, domain.ErrConflict)
}

func (s *TenantService) afterThemeUpdate(ctx context.Context, scope *access.Scope, patch tenant.Branding, version int) {
	key := s.invalidateSettings(scope.TenantID, version)
	if s.cache != nil {
		if err := s.cache.Delete(ctx, key); err != nil {
			slog.WarnContext(ctx, "settings cache invalidation failed", "tenant_id", scope.TenantID, "error", err)
		}
	}

	slog.InfoContext(ctx, "theme updated", "tenant_id", scope.TenantID, "version", version)

	s.events.publishBestEffort(ctx, messagequeue.SubjectThemeUpdated, messagequeue.ThemeUpdatedPayload{
		TenantID:  scope.TenantID,
		Version:   version,
		Keys:      slices.Sorted(maps.Keys(patch.Map())),
		UpdatedBy: scope.Subject,
		UpdatedAt: time.Now().UTC(),
	})
}

// StartInvalidationSubscriber drops the local settings cache entry of a
// tenant whenever any replica reports a theme update. It is a no-op when
// the cache has no local level.
func (s *TenantService) StartInvalidationSubscriber(ctx context.Context, q messagequeue.Queue) (func(), error) {
	local, ok := s.cache.(cache.LocalInvalidator)
	if !ok || q == nil {
		return func() {}, nil
	}
	return q.Subscribe(ctx, messagequeue.SubjectThemeUpdated, func(ctx context.Context, _ string, data []byte) error {
		var p messagequeue.ThemeUpdatedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode theme update: %w", err)
		}
		if err := local.DeleteLocal(ctx, s.invalidateSettings(p.TenantID, p.Version)); err != nil {
			return fmt.Errorf("invalidate settings %s: %w", p.TenantID, err)
		}
		slog.DebugContext(ctx, "settings invalidated", "tenant_id", p.TenantID, "version", p.Version)
		return nil
	})
}
