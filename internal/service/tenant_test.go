package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Strob0t/tenantdash/internal/domain"
	"github.com/Strob0t/tenantdash/internal/domain/access"
	"github.com/Strob0t/tenantdash/internal/domain/tenant"
	"github.com/Strob0t/tenantdash/internal/domain/user"
	"github.com/Strob0t/tenantdash/internal/port/cache"
	"github.com/Strob0t/tenantdash/internal/port/messagequeue"
)

var _ cache.LocalInvalidator = (*memCache)(nil)

// memCache is an in-memory cache with a local level, like the tiered adapter.
type memCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	localDrops  int
	sets        int
	deleteCalls int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = append([]byte(nil), value...)
	c.sets++
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.deleteCalls++
	return nil
}

func (c *memCache) DeleteLocal(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.localDrops++
	return nil
}

func seededTenants(t *testing.T) (*mockStore, *memCache, *mockQueue, *TenantService) {
	t.Helper()
	store := newMockStore()
	for _, req := range DemoTenants {
		if _, err := store.CreateTenant(context.Background(), req); err != nil {
			t.Fatal(err)
		}
	}
	c := newMemCache()
	q := newMockQueue()
	svc := NewTenantService(store, c, NewEventPublisher(q), time.Minute, 5)
	return store, c, q, svc
}

var (
	acmeAdminScope   = &access.Scope{TenantID: "acme", Subject: "u-alice", Role: user.RoleAdmin}
	globexAdminScope = &access.Scope{TenantID: "globex", Subject: "u-bob", Role: user.RoleAdmin}
)

func TestTenantService_GetSettings(t *testing.T) {
	_, c, _, svc := seededTenants(t)
	ctx := context.Background()

	st, err := svc.GetSettings(ctx, "acme")
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if st.ID != "acme" || st.Name != "Acme Corp" || st.Theme.LogoText != "ACME" {
		t.Fatalf("unexpected settings: %+v", st)
	}
	if !st.Features["analytics"] {
		t.Error("expected analytics feature")
	}
	if c.sets != 1 {
		t.Fatalf("expected settings to be cached once, sets = %d", c.sets)
	}

	// Second read is a cache hit.
	if _, err := svc.GetSettings(ctx, "acme"); err != nil {
		t.Fatal(err)
	}
	if c.sets != 1 {
		t.Fatalf("expected cache hit, sets = %d", c.sets)
	}
}

func TestTenantService_GetSettingsHasNoAccountData(t *testing.T) {
	_, _, _, svc := seededTenants(t)
	st, err := svc.GetSettings(context.Background(), "globex")
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(st)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for k := range m {
		switch k {
		case "id", "name", "theme", "features":
		default:
			t.Errorf("unexpected public settings field %q", k)
		}
	}
}

func TestTenantService_GetSettingsNotFound(t *testing.T) {
	_, _, _, svc := seededTenants(t)
	for _, id := range []string{"initech", "Not A Slug", ""} {
		if _, err := svc.GetSettings(context.Background(), id); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("GetSettings(%q): expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestTenantService_GetSettingsWithoutCache(t *testing.T) {
	store, _, _, _ := seededTenants(t)
	svc := NewTenantService(store, nil, nil, time.Minute, 5)
	if _, err := svc.GetSettings(context.Background(), "acme"); err != nil {
		t.Fatal(err)
	}
}

func TestTenantService_UpdateTheme(t *testing.T) {
	store, _, _, svc := seededTenants(t)
	ctx := context.Background()

	got, err := svc.UpdateTheme(ctx, acmeAdminScope, tenant.Branding{PrimaryColor: "#ff0000"})
	if err != nil {
		t.Fatalf("UpdateTheme: %v", err)
	}

	want := DemoTenants[0].Theme.Map()
	want["--primary-color"] = "#ff0000"
	if !maps.Equal(got.Map(), want) {
		t.Fatalf("merged theme = %v, want %v", got.Map(), want)
	}

	stored, _ := store.GetTenant(ctx, "acme")
	if !maps.Equal(stored.Theme.Map(), want) {
		t.Fatalf("stored theme = %v, want %v", stored.Theme.Map(), want)
	}
	if stored.Version != 2 {
		t.Fatalf("version = %d, want 2", stored.Version)
	}

	// Other tenants are untouched.
	globex, _ := store.GetTenant(ctx, "globex")
	if !maps.Equal(globex.Theme.Map(), DemoTenants[1].Theme.Map()) {
		t.Fatal("globex theme changed")
	}
}

func TestTenantService_UpdateThemeUsesScopeTenant(t *testing.T) {
	store, _, _, svc := seededTenants(t)
	ctx := context.Background()

	if _, err := svc.UpdateTheme(ctx, globexAdminScope, tenant.Branding{LogoText: "G2"}); err != nil {
		t.Fatal(err)
	}
	acme, _ := store.GetTenant(ctx, "acme")
	if acme.Theme.LogoText != "ACME" {
		t.Fatal("update leaked into another tenant")
	}
}

func TestTenantService_UpdateThemeEmptyPatchIsIdentity(t *testing.T) {
	store, _, _, svc := seededTenants(t)
	got, err := svc.UpdateTheme(context.Background(), acmeAdminScope, tenant.Branding{})
	if err != nil {
		t.Fatal(err)
	}
	if !maps.Equal(got.Map(), DemoTenants[0].Theme.Map()) {
		t.Fatalf("empty patch changed theme: %v", got.Map())
	}
	stored, _ := store.GetTenant(context.Background(), "acme")
	if !maps.Equal(stored.Theme.Map(), DemoTenants[0].Theme.Map()) {
		t.Fatal("empty patch changed stored theme")
	}
}

func TestTenantService_UpdateThemeInvalidatesAndPublishes(t *testing.T) {
	_, c, q, svc := seededTenants(t)
	ctx := context.Background()

	if _, err := svc.GetSettings(ctx, "acme"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateTheme(ctx, acmeAdminScope, tenant.Branding{LogoText: "ACME 2"}); err != nil {
		t.Fatal(err)
	}
	if c.deleteCalls != 1 {
		t.Fatalf("expected cache invalidation, deletes = %d", c.deleteCalls)
	}

	st, err := svc.GetSettings(ctx, "acme")
	if err != nil {
		t.Fatal(err)
	}
	if st.Theme.LogoText != "ACME 2" {
		t.Fatalf("stale settings after update: %q", st.Theme.LogoText)
	}

	msgs := q.messages(messagequeue.SubjectThemeUpdated)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 theme event, got %d", len(msgs))
	}
	var p messagequeue.ThemeUpdatedPayload
	if err := json.Unmarshal(msgs[0].data, &p); err != nil {
		t.Fatal(err)
	}
	if p.TenantID != "acme" || p.Version != 2 || p.UpdatedBy != "u-alice" || len(p.Keys) != 1 || p.Keys[0] != "--logo-text" {
		t.Fatalf("unexpected event: %+v", p)
	}
}

func TestTenantService_UpdateThemeRetriesOnConflict(t *testing.T) {
	store, _, _, svc := seededTenants(t)
	store.conflictsLeft = 2

	got, err := svc.UpdateTheme(context.Background(), acmeAdminScope, tenant.Branding{TextColor: "#000000"})
	if err != nil {
		t.Fatalf("UpdateTheme: %v", err)
	}
	if got.TextColor != "#000000" {
		t.Fatalf("text color = %q", got.TextColor)
	}
	if store.themeWrites != 1 {
		t.Fatalf("theme writes = %d, want 1", store.themeWrites)
	}
}

func TestTenantService_UpdateThemeGivesUpAfterRetries(t *testing.T) {
	store, _, q, svc := seededTenants(t)
	store.conflictsLeft = 100

	_, err := svc.UpdateTheme(context.Background(), acmeAdminScope, tenant.Branding{TextColor: "#000000"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if store.conflictsLeft != 95 {
		t.Fatalf("attempts = %d, want 5", 100-store.conflictsLeft)
	}
	if len(q.messages(messagequeue.SubjectThemeUpdated)) != 0 {
		t.Fatal("failed update must not publish")
	}
}

func TestTenantService_UpdateThemeRejectsInvalidPatch(t *testing.T) {
	store, _, _, svc := seededTenants(t)
	patch := tenant.Branding{Extra: map[string]string{"bad key": "x"}}

	_, err := svc.UpdateTheme(context.Background(), acmeAdminScope, patch)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	stored, _ := store.GetTenant(context.Background(), "acme")
	if stored.Version != 1 {
		t.Fatal("invalid patch was written")
	}
}

func TestTenantService_UpdateThemeRejectsMergedOverflow(t *testing.T) {
	store, _, _, svc := seededTenants(t)
	ctx := context.Background()

	first := tenant.Branding{Extra: map[string]string{}}
	for i := range tenant.MaxExtraProperties {
		first.Extra[fmt.Sprintf("--k%d", i)] = "v"
	}
	if _, err := svc.UpdateTheme(ctx, acmeAdminScope, first); err != nil {
		t.Fatalf("filling extras: %v", err)
	}

	_, err := svc.UpdateTheme(ctx, acmeAdminScope, tenant.Branding{Extra: map[string]string{"--one-more": "v"}})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	stored, _ := store.GetTenant(ctx, "acme")
	if stored.Version != 2 {
		t.Fatalf("version = %d, want 2", stored.Version)
	}
}

func TestTenantService_UpdateThemeWithoutScope(t *testing.T) {
	_, _, _, svc := seededTenants(t)
	_, err := svc.UpdateTheme(context.Background(), nil, tenant.Branding{LogoText: "X"})
	if !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestTenantService_UpdateThemeStorageUnavailable(t *testing.T) {
	store, _, _, svc := seededTenants(t)
	store.getTenantErr = domain.ErrStorageUnavailable
	_, err := svc.UpdateTheme(context.Background(), acmeAdminScope, tenant.Branding{LogoText: "X"})
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestTenantService_ConcurrentDisjointUpdatesBothSurvive(t *testing.T) {
	store, _, _, svc := seededTenants(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var failures atomic.Int32
	patches := []tenant.Branding{
		{PrimaryColor: "#111111"},
		{SecondaryColor: "#222222"},
		{LogoText: "ACME X"},
		{Extra: map[string]string{"--accent": "#333333"}},
	}
	for _, p := range patches {
		wg.Add(1)
		go func(p tenant.Branding) {
			defer wg.Done()
			if _, err := svc.UpdateTheme(ctx, acmeAdminScope, p); err != nil {
				failures.Add(1)
			}
		}(p)
	}
	wg.Wait()

	if failures.Load() != 0 {
		t.Fatalf("%d updates failed", failures.Load())
	}
	stored, _ := store.GetTenant(ctx, "acme")
	for _, p := range patches {
		for k, v := range p.Map() {
			if got, _ := stored.Theme.Get(k); got != v {
				t.Errorf("%s = %q, want %q (an update was lost)", k, got, v)
			}
		}
	}
	if stored.Version != 1+len(patches) {
		t.Errorf("version = %d, want %d", stored.Version, 1+len(patches))
	}
	if svc.locks.size() != 0 {
		t.Errorf("keyed mutex leaked %d entries", svc.locks.size())
	}
}

func TestTenantService_InvalidationSubscriber(t *testing.T) {
	_, c, q, svc := seededTenants(t)
	ctx := context.Background()

	cancel, err := svc.StartInvalidationSubscriber(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	if _, err := svc.GetSettings(ctx, "globex"); err != nil {
		t.Fatal(err)
	}

	// Another replica reports an update.
	data, _ := json.Marshal(messagequeue.ThemeUpdatedPayload{TenantID: "globex", Version: 9})
	if err := q.Publish(ctx, messagequeue.SubjectThemeUpdated, data); err != nil {
		t.Fatal(err)
	}
	if c.localDrops != 1 {
		t.Fatalf("local drops = %d, want 1", c.localDrops)
	}
	if _, ok, _ := c.Get(ctx, settingsKey("globex")); ok {
		t.Fatal("settings still cached after invalidation")
	}
}

func TestTenantService_LoadRacingUpdateDoesNotCacheStaleSettings(t *testing.T) {
	store, c, _, svc := seededTenants(t)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var reads atomic.Int32
	store.tenantReadHook = func(ctx context.Context) error {
		if reads.Add(1) != 1 {
			return nil
		}
		close(entered)
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	first := make(chan *tenant.Settings, 1)
	go func() {
		st, err := svc.GetSettings(ctx, "acme")
		if err != nil {
			t.Errorf("first GetSettings: %v", err)
		}
		first <- st
	}()

	// The first load has read the old theme and is held there while an
	// update commits.
	<-entered
	if _, err := svc.UpdateTheme(ctx, acmeAdminScope, tenant.Branding{LogoText: "NEWACME"}); err != nil {
		t.Fatalf("UpdateTheme: %v", err)
	}
	close(release)
	if st := <-first; st != nil && st.Theme.LogoText != "ACME" {
		t.Fatalf("first read = %q, want the pre-update theme", st.Theme.LogoText)
	}

	st, err := svc.GetSettings(ctx, "acme")
	if err != nil {
		t.Fatal(err)
	}
	if st.Theme.LogoText != "NEWACME" {
		t.Fatalf("logo_text = %q after update, want NEWACME", st.Theme.LogoText)
	}

	data, ok, _ := c.Get(ctx, settingsKey("acme"))
	if !ok {
		t.Fatal("fresh settings were not cached")
	}
	var e settingsEntry
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatal(err)
	}
	if e.Version != 2 || e.Settings.Theme.LogoText != "NEWACME" {
		t.Fatalf("cached entry = version %d, logo %q", e.Version, e.Settings.Theme.LogoText)
	}
}

func TestTenantService_CancelledCallerDoesNotFailJoinedCaller(t *testing.T) {
	store, _, _, svc := seededTenants(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	store.tenantReadHook = func(ctx context.Context) error {
		once.Do(func() { close(entered) })
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.GetSettings(ctxA, "globex")
		errA <- err
	}()
	<-entered

	type result struct {
		st  *tenant.Settings
		err error
	}
	resB := make(chan result, 1)
	go func() {
		st, err := svc.GetSettings(context.Background(), "globex")
		resB <- result{st, err}
	}()
	// Let B join the load A started.
	time.Sleep(20 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("caller A: expected context.Canceled, got %v", err)
	}

	close(release)
	select {
	case r := <-resB:
		if r.err != nil {
			t.Fatalf("caller B failed after A was cancelled: %v", r.err)
		}
		if r.st.ID != "globex" {
			t.Fatalf("caller B got %+v", r.st)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("caller B did not return")
	}
}

func TestTenantService_RefusesCachedSettingsOlderThanInvalidation(t *testing.T) {
	_, c, q, svc := seededTenants(t)
	ctx := context.Background()

	cancel, err := svc.StartInvalidationSubscriber(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	data, _ := json.Marshal(messagequeue.ThemeUpdatedPayload{TenantID: "acme", Version: 3})
	if err := q.Publish(ctx, messagequeue.SubjectThemeUpdated, data); err != nil {
		t.Fatal(err)
	}

	// A slower replica writes back what it read before the update.
	stale, _ := json.Marshal(settingsEntry{
		Version:  2,
		Settings: tenant.Settings{ID: "acme", Name: "Acme Corp", Theme: tenant.Branding{LogoText: "OLD"}},
	})
	if err := c.Set(ctx, settingsKey("acme"), stale, time.Minute); err != nil {
		t.Fatal(err)
	}

	st, err := svc.GetSettings(ctx, "acme")
	if err != nil {
		t.Fatal(err)
	}
	if st.Theme.LogoText == "OLD" {
		t.Fatal("served settings older than the last invalidation")
	}
	if _, ok, _ := c.Get(ctx, settingsKey("acme")); ok {
		t.Fatal("stale entry should be dropped and the older store read not cached")
	}
}

func TestTenantService_Create(t *testing.T) {
	store := newMockStore()
	svc := NewTenantService(store, nil, nil, time.Minute, 5)
	ctx := context.Background()

	if _, err := svc.Create(ctx, tenant.CreateRequest{ID: "initech", Name: "Initech"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, tenant.CreateRequest{ID: "Bad Slug", Name: "x"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	got, err := svc.Get(ctx, "initech")
	if err != nil || got.Name != "Initech" || got.Version != 1 {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if _, err := svc.Get(ctx, "bad-slug"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
