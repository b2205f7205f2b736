package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPurger struct {
	calls int
	err   error
	dl    bool
}

func (p *countingPurger) PurgeExpired(ctx context.Context) (int64, error) {
	p.calls++
	_, p.dl = ctx.Deadline()
	return 3, p.err
}

func TestScheduleRetention(t *testing.T) {
	log, _ := test.NewNullLogger()
	s := New(log, time.Minute)

	assert.NoError(t, s.ScheduleRetention("@daily", &countingPurger{}))
	assert.NoError(t, s.ScheduleRetention("0 3 * * *", &countingPurger{}))
	assert.Error(t, s.ScheduleRetention("every tuesday", &countingPurger{}))
	assert.Len(t, s.cron.Entries(), 2)
}

func TestRetentionJob(t *testing.T) {
	log, hook := test.NewNullLogger()
	s := New(log, time.Minute)

	p := &countingPurger{}
	s.retentionJob(p)()
	assert.Equal(t, 1, p.calls)
	assert.True(t, p.dl)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, int64(3), hook.LastEntry().Data["deleted"])

	failing := &countingPurger{err: errors.New("db down")}
	s.retentionJob(failing)()
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestStartStop(t *testing.T) {
	log, _ := test.NewNullLogger()
	s := New(log, time.Minute)
	require.NoError(t, s.ScheduleRetention("@daily", &countingPurger{}))

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.NoError(t, ctx.Err())
}
