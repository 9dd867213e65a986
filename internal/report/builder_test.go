package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/naverpost/internal/types"
)

func run(success bool) *types.RunReport {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r := &types.RunReport{
		ID:         "01HRUN",
		Title:      "제목 <테스트>",
		StartedAt:  started,
		FinishedAt: started.Add(42 * time.Second),
		Success:    success,
		FinalURL:   "https://blog.naver.com/PostList.naver",
		Steps: []types.StepResult{
			{Step: types.StepAcquireDriver, OK: true, Duration: 1500 * time.Millisecond},
			{Step: types.StepSignIn, OK: success, Duration: 5 * time.Second},
		},
	}
	if !success {
		r.FailedStep = types.StepSignIn
		r.Steps[1].Error = "still on login page"
	}
	return r
}

func TestBuildSuccess(t *testing.T) {
	b, err := New(nil)
	require.NoError(t, err)

	rep, err := b.Build(run(true))
	require.NoError(t, err)

	assert.Equal(t, "01HRUN", rep.RunID)
	assert.Contains(t, rep.Subject, "saved")
	assert.Contains(t, rep.PlainBody, "Result: saved")
	assert.Contains(t, rep.PlainBody, "acquire_driver")
	assert.Contains(t, rep.PlainBody, "took 42s")
	assert.Contains(t, rep.HTMLBody, "제목 &lt;테스트&gt;")
	assert.NotContains(t, rep.HTMLBody, "<테스트>")
}

func TestBuildFailure(t *testing.T) {
	b, err := New(time.FixedZone("KST", 9*60*60))
	require.NoError(t, err)

	rep, err := b.Build(run(false))
	require.NoError(t, err)

	assert.Contains(t, rep.Subject, "failed at sign_in")
	assert.Contains(t, rep.PlainBody, "Result: failed at sign_in")
	assert.Contains(t, rep.PlainBody, "still on login page")
	assert.Contains(t, rep.PlainBody, "18:00:00 KST")
	assert.Contains(t, rep.HTMLBody, "Failed at sign_in")
}

func TestBuildNil(t *testing.T) {
	b, err := New(nil)
	require.NoError(t, err)
	_, err = b.Build(nil)
	assert.Error(t, err)
}
