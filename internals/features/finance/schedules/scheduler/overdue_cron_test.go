package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSweeper struct {
	n     int64
	err   error
	calls int
}

func (s *stubSweeper) SweepOverdue(ctx context.Context) (int64, error) {
	s.calls++
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep without deadline")
	}
	return s.n, s.err
}

func TestRunSweep(t *testing.T) {
	sw := &stubSweeper{n: 3}
	n, err := RunSweep(context.Background(), sw)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, 1, sw.calls)

	sw = &stubSweeper{err: errors.New("db down")}
	_, err = RunSweep(context.Background(), sw)
	assert.EqualError(t, err, "db down")
}

func TestStartOverdueCronRejectsBadSpec(t *testing.T) {
	_, err := StartOverdueCron("every night", time.UTC, &stubSweeper{})
	assert.Error(t, err)
}

func TestStartOverdueCron(t *testing.T) {
	c, err := StartOverdueCron("10 0 * * *", time.UTC, &stubSweeper{})
	require.NoError(t, err)
	defer c.Stop()
	require.Len(t, c.Entries(), 1)
	assert.False(t, c.Entries()[0].Next.IsZero())
}
