package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestChecker_AllHealthy(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := NewChecker(logger, "1.2.3", time.Second, 0)
	c.Register(PingCheck("feedback_store", fakePinger{}))
	c.Register(Check{Name: "engine", Probe: func(context.Context) error { return nil }})

	status := c.Run(context.Background())

	assert.Equal(t, StateHealthy, status.Overall)
	assert.Equal(t, "1.2.3", status.Version)
	require.Len(t, status.Components, 2)
	assert.Equal(t, StateHealthy, status.Components["engine"].Status)
	assert.Equal(t, []string{"engine", "feedback_store"}, c.Names())
}

func TestChecker_OneUnhealthy(t *testing.T) {
	logger, hook := test.NewNullLogger()
	c := NewChecker(logger, "dev", time.Second, 0)
	c.Register(PingCheck("feedback_store", fakePinger{}))
	c.Register(PingCheck("redis", fakePinger{err: errors.New("dial tcp: refused")}))

	status := c.Run(context.Background())

	assert.Equal(t, StateUnhealthy, status.Overall)
	assert.Equal(t, "dial tcp: refused", status.Components["redis"].Error)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, []string{"redis"}, hook.LastEntry().Data["unhealthy_components"])
}

func TestChecker_NoChecksIsHealthy(t *testing.T) {
	logger, _ := test.NewNullLogger()
	status := NewChecker(logger, "dev", 0, 0).Run(context.Background())
	assert.Equal(t, StateHealthy, status.Overall)
	assert.Empty(t, status.Components)
}

func TestChecker_CachesResults(t *testing.T) {
	logger, _ := test.NewNullLogger()
	var calls int32
	c := NewChecker(logger, "dev", time.Second, time.Minute)
	c.Register(Check{Name: "counted", Probe: func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}})

	first := c.Run(context.Background())
	first.Components["counted"] = ComponentHealth{Status: StateUnhealthy}
	second := c.Run(context.Background())

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, StateHealthy, second.Components["counted"].Status, "cached status must not be shared")
}

func TestChecker_TimeoutBoundsChecks(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := NewChecker(logger, "dev", 20*time.Millisecond, 0)
	c.Register(Check{Name: "slow", Probe: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	start := time.Now()
	status := c.Run(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StateUnhealthy, status.Overall)
}
