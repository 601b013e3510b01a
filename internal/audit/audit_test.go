package audit

import (
	"testing"
	"time"

	"github.com/ccastromar/sos-store-ops-system/internal/store"
	"github.com/stretchr/testify/require"
)

func newLog(t *testing.T) *Log {
	t.Helper()
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewLog(s.DB())
}

func TestAppendAndQuery(t *testing.T) {
	l := newLog(t)

	l.Append(ExecutionRecord{
		CapabilityName: "clear_cache_v1",
		Status:         StatusOK,
		InputSnapshot:  `{"request":"clear the cache"}`,
		OutputSnapshot: `{"cleared":true}`,
		DurationMs:     42,
	})

	recs, err := l.Query(Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "clear_cache_v1", recs[0].CapabilityName)
	require.Equal(t, StatusOK, recs[0].Status)
	require.NotEmpty(t, recs[0].ID)
	require.False(t, recs[0].Timestamp.IsZero())
}

func TestAppend_EmptyCapabilityBecomesNone(t *testing.T) {
	l := newLog(t)
	l.Append(ExecutionRecord{Status: StatusDenied, InputSnapshot: "{}"})

	recs, err := l.Query(Filter{Status: StatusDenied}, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "none", recs[0].CapabilityName)
}

func TestQuery_NewestFirstAndLimit(t *testing.T) {
	l := newLog(t)
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		l.Append(ExecutionRecord{
			CapabilityName: "cap",
			Status:         StatusOK,
			InputSnapshot:  "{}",
			Timestamp:      base.Add(time.Duration(i) * time.Second),
		})
	}

	recs, err := l.Query(Filter{}, 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.True(t, recs[0].Timestamp.After(recs[1].Timestamp))
	require.True(t, recs[1].Timestamp.After(recs[2].Timestamp))
}

func TestQuery_FilterByCapabilityAndStatus(t *testing.T) {
	l := newLog(t)
	l.Append(ExecutionRecord{CapabilityName: "a", Status: StatusOK, InputSnapshot: "{}"})
	l.Append(ExecutionRecord{CapabilityName: "a", Status: StatusError, InputSnapshot: "{}", ErrorMessage: "timeout"})
	l.Append(ExecutionRecord{CapabilityName: "b", Status: StatusOK, InputSnapshot: "{}"})

	recs, err := l.Query(Filter{CapabilityName: "a", Status: StatusError}, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "timeout", recs[0].ErrorMessage)

	n, err := l.Count()
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestAppend_NilDBDoesNotFailCaller(t *testing.T) {
	l := NewLog(nil)
	// must not panic or error out
	l.Append(ExecutionRecord{Status: StatusOK, InputSnapshot: "{}"})
	recs, err := l.Query(Filter{}, 10)
	require.NoError(t, err)
	require.Nil(t, recs)
}
