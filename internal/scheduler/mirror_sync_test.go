package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrSnakeDoc/catalogd/internal/domain"
	"github.com/MrSnakeDoc/catalogd/internal/logger"
	"github.com/MrSnakeDoc/catalogd/internal/seed"
	"github.com/MrSnakeDoc/catalogd/internal/store"
	"github.com/MrSnakeDoc/catalogd/internal/store/memory"
	"github.com/MrSnakeDoc/catalogd/internal/tenant"
)

// recordingBackend counts writes and can refuse reads, writes and pings.
type recordingBackend struct {
	*memory.Backend
	sets    atomic.Int32
	failGet atomic.Bool
	failSet atomic.Bool
	down    atomic.Bool
}

func (b *recordingBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if b.failGet.Load() {
		return nil, errors.New("read timeout")
	}
	return b.Backend.Get(ctx, key)
}

func (b *recordingBackend) Set(ctx context.Context, key string, value []byte) error {
	b.sets.Add(1)
	if b.failSet.Load() {
		return errors.New("write refused")
	}
	return b.Backend.Set(ctx, key, value)
}

func (b *recordingBackend) Ping(ctx context.Context) error {
	if b.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func newRegistry(b store.Backend) *tenant.Registry {
	return tenant.NewRegistry(tenant.Options{Backend: b, Seed: seed.Default()})
}

func TestMirrorSyncer_SyncRepairsMissedWrites(t *testing.T) {
	ctx := context.Background()
	b := &recordingBackend{Backend: memory.New()}
	reg := newRegistry(b)

	c, err := reg.Get(ctx, "acme")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// the write after this add is lost
	b.failSet.Store(true)
	if _, err := c.Courses.Add(ctx, domain.Course{ID: "C9", Name: "Lost write"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	b.failSet.Store(false)

	ms := NewMirrorSyncer(reg, logger.NewNop(), 0, nil)
	n, err := ms.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Sync() = %d tenants, want 1", n)
	}

	// a fresh registry over the same backend sees the repaired collection
	restarted, err := newRegistry(b.Backend).Get(ctx, "acme")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, ok := restarted.Courses.Get("C9"); !ok {
		t.Error("C9 should have been mirrored by Sync")
	}
}

func TestMirrorSyncer_SyncKeepsDurableDataAfterStartupOutage(t *testing.T) {
	ctx := context.Background()
	b := &recordingBackend{Backend: memory.New()}
	key := store.CollectionKey("acme", "courses")
	if err := b.Backend.Set(ctx, key, []byte(`[{"id":"REAL","name":"Persisted","status":"Ativo"}]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// reads fail while the tenant is hydrated, so it starts from the seed
	b.failGet.Store(true)
	reg := newRegistry(b)
	c, err := reg.Get(ctx, "acme")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, ok := c.Courses.Get("REAL"); ok {
		t.Fatal("REAL should not be visible before the backend recovers")
	}

	ms := NewMirrorSyncer(reg, logger.NewNop(), 0, nil)
	if _, err := ms.Sync(ctx); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	b.failGet.Store(false)
	if _, err := ms.Sync(ctx); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	raw, err := b.Backend.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	var stored []domain.Course
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != "REAL" {
		t.Errorf("durable courses = %v, want only REAL", stored)
	}
	if _, ok := c.Courses.Get("REAL"); !ok {
		t.Error("Sync should re-hydrate the tenant once the backend answers")
	}
	if !c.Courses.Confirmed() {
		t.Error("Courses should be confirmed after a successful sync")
	}
}

func TestMirrorSyncer_SyncSkipsUnreachableBackend(t *testing.T) {
	ctx := context.Background()
	b := &recordingBackend{Backend: memory.New()}
	reg := newRegistry(b)
	if _, err := reg.Get(ctx, "acme"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	b.down.Store(true)
	before := b.sets.Load()

	_, err := NewMirrorSyncer(reg, logger.NewNop(), 0, nil).Sync(ctx)
	if err == nil {
		t.Fatal("Sync() expected error for unreachable backend")
	}
	if b.sets.Load() != before {
		t.Error("Sync() should not write when the backend is down")
	}
}

func TestMirrorSyncer_SyncWithoutBackend(t *testing.T) {
	reg := tenant.NewRegistry(tenant.Options{Seed: seed.Default()})
	n, err := NewMirrorSyncer(reg, logger.NewNop(), 0, nil).Sync(context.Background())
	if err != nil || n != 0 {
		t.Errorf("Sync() = %d, %v; want 0, nil", n, err)
	}
}

func TestMirrorSyncer_ManualTrigger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := &recordingBackend{Backend: memory.New()}
	reg := newRegistry(b)
	if _, err := reg.Get(ctx, "acme"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	before := b.sets.Load()

	trigger := make(chan struct{}, 1)
	ms := NewMirrorSyncer(reg, logger.NewNop(), 0, trigger)
	ms.Start(ctx)
	defer ms.Stop()

	trigger <- struct{}{}

	deadline := time.Now().Add(2 * time.Second)
	for b.sets.Load() < before+3 {
		if time.Now().After(deadline) {
			t.Fatalf("manual trigger did not flush: %d writes", b.sets.Load()-before)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHydrator_Hydrate(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	if err := b.Set(ctx, store.CollectionKey("globex", "courses"), []byte(`[]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	reg := newRegistry(b)
	if err := NewHydrator(reg, "default", logger.NewNop()).Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate failed: %v", err)
	}

	got := reg.Tenants()
	if len(got) != 2 || got[0] != "default" || got[1] != "globex" {
		t.Errorf("Tenants() = %v, want [default globex]", got)
	}
}

func TestHydrator_InvalidDefaultTenant(t *testing.T) {
	reg := tenant.NewRegistry(tenant.Options{})
	err := NewHydrator(reg, "Not Valid", logger.NewNop()).Hydrate(context.Background())
	if !errors.Is(err, tenant.ErrInvalidTenant) {
		t.Errorf("Hydrate() error = %v, want ErrInvalidTenant", err)
	}
}
