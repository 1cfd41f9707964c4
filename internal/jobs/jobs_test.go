package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []time.Time
	sent  int
	err   error
}

func (f *fakeDispatcher) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("no deadline")
	}
	f.calls = append(f.calls, now)
	return f.sent, f.err
}

func TestNotificationDispatcher_Run(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.FixedZone("ICT", 7*3600))
	fd := &fakeDispatcher{sent: 3}
	d := NewNotificationDispatcher(fd, zaptest.NewLogger(t))
	d.now = func() time.Time { return at }

	require.NoError(t, d.Run(context.Background()))
	require.Len(t, fd.calls, 1)
	require.Equal(t, time.UTC, fd.calls[0].Location())
	require.True(t, fd.calls[0].Equal(at))

	fd.err = errors.New("db gone")
	err := d.Run(context.Background())
	require.ErrorIs(t, err, fd.err)
	require.Contains(t, err.Error(), "dispatch due notifications")
}

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "count" }

func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler(t *testing.T) {
	t.Parallel()

	s := NewScheduler(zaptest.NewLogger(t))
	require.Error(t, s.Add("every minute please", &countingJob{}))

	ok := &countingJob{}
	failing := &countingJob{err: errors.New("boom")}
	require.NoError(t, s.Add("@every 1s", ok))
	require.NoError(t, s.Add("@every 1s", failing))

	s.Start()
	require.Eventually(t, func() bool { return ok.runs.Load() >= 1 && failing.runs.Load() >= 1 },
		3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	n := ok.runs.Load()
	time.Sleep(1200 * time.Millisecond)
	require.Equal(t, n, ok.runs.Load())
}
