package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/naverpost/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "db", "naverpost.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string, started time.Time, success bool) *types.RunReport {
	r := &types.RunReport{
		ID:         id,
		Title:      "제목 테스트",
		StartedAt:  started,
		FinishedAt: started.Add(30 * time.Second),
		Success:    success,
		FinalURL:   "https://blog.naver.com/PostList.naver",
		Steps: []types.StepResult{
			{Step: types.StepAcquireDriver, OK: true, StartedAt: started, Duration: time.Second},
			{Step: types.StepSignIn, OK: success, StartedAt: started.Add(time.Second), Duration: 4 * time.Second},
		},
	}
	if !success {
		r.FailedStep = types.StepSignIn
		r.Steps[1].Error = "still on login page"
	}
	return r
}

func TestSaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRun(sampleRun("01RUN", started, false)))

	got, err := s.GetRun("01RUN")
	require.NoError(t, err)
	assert.Equal(t, "제목 테스트", got.Title)
	assert.True(t, got.StartedAt.Equal(started))
	assert.False(t, got.Success)
	assert.Equal(t, types.StepSignIn, got.FailedStep)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, types.StepAcquireDriver, got.Steps[0].Step)
	assert.Equal(t, 4*time.Second, got.Steps[1].Duration)
	assert.Equal(t, "still on login page", got.Steps[1].Error)
}

func TestSaveRunReplacesSteps(t *testing.T) {
	s := newTestStore(t)
	started := time.Now().UTC()

	r := sampleRun("01RUN", started, true)
	require.NoError(t, s.SaveRun(r))

	r.Steps = r.Steps[:1]
	require.NoError(t, s.SaveRun(r))

	got, err := s.GetRun("01RUN")
	require.NoError(t, err)
	assert.Len(t, got.Steps, 1)
}

func TestRecentRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRun(sampleRun("a", base, true)))
	require.NoError(t, s.SaveRun(sampleRun("b", base.Add(24*time.Hour), false)))
	require.NoError(t, s.SaveRun(sampleRun("c", base.Add(48*time.Hour), true)))

	runs, err := s.RecentRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
	assert.Equal(t, types.StepSignIn, runs[1].FailedStep)
	assert.Equal(t, 30*time.Second, runs[0].Duration())
}

func TestRecentRunsOrderAcrossZones(t *testing.T) {
	s := newTestStore(t)
	seoul := time.FixedZone("KST", 9*60*60)

	// 10:00 KST is 01:00 UTC, an hour before the second run.
	earlier := time.Date(2026, 3, 1, 10, 0, 0, 0, seoul)
	later := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveRun(sampleRun("earlier", earlier, true)))
	require.NoError(t, s.SaveRun(sampleRun("later", later, true)))

	runs, err := s.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "later", runs[0].ID)
	assert.Equal(t, "earlier", runs[1].ID)
	assert.True(t, runs[1].StartedAt.Equal(earlier))
}

func TestGetRunUnknown(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSaveRunRequiresID(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.SaveRun(&types.RunReport{Title: "x"}))
}
