package registry

import (
	"sync"
	"testing"

	"github.com/ccastromar/sos-store-ops-system/internal/config"
	"github.com/ccastromar/sos-store-ops-system/internal/store"
	"github.com/stretchr/testify/require"
)

func newMemRegistry(t *testing.T) *Registry {
	t.Helper()
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s.DB())
}

func TestRegisterThenFind_RoundTrip(t *testing.T) {
	r := newMemRegistry(t)

	reg, err := r.Register(Capability{
		Name:        "clear_cache_v1",
		Description: "clear the site cache",
		Operation:   "wp_clear_cache",
	})
	require.NoError(t, err)
	require.True(t, reg.IsActive)
	require.Zero(t, reg.UsageCount)

	// substring of the description finds the same capability by name
	got, ok := r.Find("site cache")
	require.True(t, ok)
	require.Equal(t, "clear_cache_v1", got.Name)
}

func TestFind_RequestTextContainingDescription(t *testing.T) {
	r := newMemRegistry(t)
	_, err := r.Register(Capability{Name: "clear_cache_v1", Description: "clear the cache", Operation: "op"})
	require.NoError(t, err)

	got, ok := r.Find("please clear the cache for my shop")
	require.True(t, ok)
	require.Equal(t, "clear_cache_v1", got.Name)
}

func TestFind_DeterministicFirstMatchByName(t *testing.T) {
	r := newMemRegistry(t)
	_, err := r.Register(Capability{Name: "b_cap", Description: "manage cache", Operation: "op"})
	require.NoError(t, err)
	_, err = r.Register(Capability{Name: "a_cap", Description: "manage cache", Operation: "op"})
	require.NoError(t, err)

	got, ok := r.Find("manage cache")
	require.True(t, ok)
	require.Equal(t, "a_cap", got.Name)
}

func TestFind_SkipsInactive(t *testing.T) {
	r := newMemRegistry(t)
	_, err := r.Register(Capability{Name: "x", Description: "flush cache", Operation: "op"})
	require.NoError(t, err)
	require.NoError(t, r.Deactivate("x"))

	_, ok := r.Find("flush cache")
	require.False(t, ok)

	// still present, just hidden
	c, ok := r.Get("x")
	require.True(t, ok)
	require.False(t, c.IsActive)
}

func TestRegister_UpsertKeepsStats(t *testing.T) {
	r := newMemRegistry(t)
	_, err := r.Register(Capability{Name: "x", Description: "old", Operation: "op"})
	require.NoError(t, err)
	require.NoError(t, r.RecordOutcome("x", true))

	updated, err := r.Register(Capability{Name: "x", Description: "new words", Operation: "op2"})
	require.NoError(t, err)
	require.Equal(t, "new words", updated.Description)
	require.Equal(t, "op2", updated.Operation)
	require.Equal(t, 1, updated.UsageCount)
	require.InDelta(t, 1.0, updated.SuccessRate, 1e-9)
}

func TestRecordOutcome_RunningAverage(t *testing.T) {
	r := newMemRegistry(t)
	_, err := r.Register(Capability{Name: "x", Description: "d", Operation: "op"})
	require.NoError(t, err)

	// 3 successes, 1 failure
	require.NoError(t, r.RecordOutcome("x", true))
	require.NoError(t, r.RecordOutcome("x", true))
	require.NoError(t, r.RecordOutcome("x", false))
	require.NoError(t, r.RecordOutcome("x", true))

	c, ok := r.Get("x")
	require.True(t, ok)
	require.Equal(t, 4, c.UsageCount)
	require.InDelta(t, 0.75, c.SuccessRate, 1e-9)
}

func TestRecordOutcome_UnknownNameIsLogicError(t *testing.T) {
	r := newMemRegistry(t)
	require.Error(t, r.RecordOutcome("ghost", true))
}

func TestRecordOutcome_ConcurrentNoLostUpdates(t *testing.T) {
	r := newMemRegistry(t)
	_, err := r.Register(Capability{Name: "x", Description: "d", Operation: "op"})
	require.NoError(t, err)

	const k = 64
	var wg sync.WaitGroup
	wg.Add(k)
	for i := 0; i < k; i++ {
		success := i%2 == 0
		go func(ok bool) {
			defer wg.Done()
			_ = r.RecordOutcome("x", ok)
		}(success)
	}
	wg.Wait()

	c, _ := r.Get("x")
	require.Equal(t, k, c.UsageCount)
	require.InDelta(t, 0.5, c.SuccessRate, 1e-9)
}

func TestList_OrderedByUsageDesc(t *testing.T) {
	r := newMemRegistry(t)
	for _, name := range []string{"a", "b", "c"} {
		_, err := r.Register(Capability{Name: name, Description: name, Operation: "op"})
		require.NoError(t, err)
	}
	require.NoError(t, r.RecordOutcome("b", true))
	require.NoError(t, r.RecordOutcome("b", true))
	require.NoError(t, r.RecordOutcome("c", true))

	got := r.List()
	require.Len(t, got, 3)
	require.Equal(t, "b", got[0].Name)
	require.Equal(t, "c", got[1].Name)
	require.Equal(t, "a", got[2].Name)
}

func TestLoad_SurvivesRestart(t *testing.T) {
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	r1 := New(s.DB())
	_, err = r1.Register(Capability{Name: "x", Description: "persisted", Operation: "op"})
	require.NoError(t, err)
	require.NoError(t, r1.RecordOutcome("x", true))

	// fresh registry against the same handle
	r2 := New(s.DB())
	require.NoError(t, r2.Load())
	c, ok := r2.Get("x")
	require.True(t, ok)
	require.Equal(t, "persisted", c.Description)
	require.Equal(t, 1, c.UsageCount)
}

func TestSeed_FromConfig(t *testing.T) {
	r := newMemRegistry(t)
	require.NoError(t, r.Seed(map[string]config.CapabilitySeed{
		"clear_cache_v1": {
			Name:        "clear_cache_v1",
			Description: "clear the cache",
			Operation:   "wp_clear_cache",
			ParameterSchema: map[string]any{
				"type": "object",
			},
		},
	}))

	c, ok := r.Get("clear_cache_v1")
	require.True(t, ok)
	require.Contains(t, c.ParameterSchema, `"type":"object"`)
}

func TestRegister_PersistFailureLeavesNoEntry(t *testing.T) {
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	r := New(s.DB())
	require.NoError(t, s.Close())

	_, err = r.Register(Capability{Name: "ghost_v1", Description: "clear the page cache", Operation: "wp_clear_cache"})
	require.Error(t, err)

	_, ok := r.Find("clear the page cache")
	require.False(t, ok)
	_, ok = r.Get("ghost_v1")
	require.False(t, ok)
}

func TestRegister_PersistFailureRollsBackUpdate(t *testing.T) {
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	r := New(s.DB())

	_, err = r.Register(Capability{Name: "clear_cache_v1", Description: "clear the site cache", Operation: "wp_clear_cache"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = r.Register(Capability{Name: "clear_cache_v1", Description: "something else entirely", Operation: "wp_clear_cache"})
	require.Error(t, err)

	got, ok := r.Get("clear_cache_v1")
	require.True(t, ok)
	require.Equal(t, "clear the site cache", got.Description)
}
