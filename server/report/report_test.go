package report

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"spotforge/server/classify"
	"spotforge/server/engine"
	"spotforge/server/spot"
	"spotforge/server/spot/spottest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func batch(n int, bad map[int]bool) []*spot.Spot {
	out := make([]*spot.Spot, n)
	for i := range out {
		s := spottest.TurnSpot()
		s.ID = fmt.Sprintf("s%d", i+1)
		if bad[i] {
			s.Data.Pot = 10
		}
		out[i] = s
	}
	return out
}

func TestRunCountsAndOrder(t *testing.T) {
	spots := batch(40, map[int]bool{3: true, 17: true, 38: true})
	spots = append(spots, nil)

	rn := &Runner{Validator: engine.NewValidator(classify.Default{}), Workers: 4, Logger: zaptest.NewLogger(t)}
	rep, err := rn.Run(context.Background(), spots)
	require.NoError(t, err)

	assert.Equal(t, 41, rep.Total)
	assert.Equal(t, 37, rep.OK)
	assert.Equal(t, 4, rep.Bad)
	assert.True(t, rep.Failed())
	require.Len(t, rep.Failures, 4)
	assert.Equal(t, []string{"s4", "s18", "s39", ""}, []string{rep.Failures[0].ID, rep.Failures[1].ID, rep.Failures[2].ID, rep.Failures[3].ID})
	assert.Contains(t, rep.Failures[0].Errors[0], "pot mismatch")
	assert.NotEqual(t, [16]byte{}, [16]byte(rep.RunID))
}

func TestRunAllValid(t *testing.T) {
	rn := &Runner{Validator: engine.NewValidator(nil)}
	rep, err := rn.Run(context.Background(), batch(5, nil))
	require.NoError(t, err)
	assert.False(t, rep.Failed())
	assert.Equal(t, 5, rep.OK)
	assert.NotNil(t, rep.Failures)

	rep, err = rn.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Total)
}

type countingValidator struct {
	calls    atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

func (c *countingValidator) Validate(s *spot.Spot) engine.Result {
	c.calls.Add(1)
	n := c.inFlight.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	defer c.inFlight.Add(-1)
	return engine.Validate(s)
}

func TestRunRespectsWorkerLimit(t *testing.T) {
	v := &countingValidator{}
	rn := &Runner{Validator: v, Workers: 3}
	rep, err := rn.Run(context.Background(), batch(30, nil))
	require.NoError(t, err)
	assert.Equal(t, 30, rep.OK)
	assert.Equal(t, int64(30), v.calls.Load())
	assert.LessOrEqual(t, v.peak.Load(), int64(3))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v := &countingValidator{}
	_, err := (&Runner{Validator: v}).Run(ctx, batch(10, nil))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), v.calls.Load())
}

func TestWriteText(t *testing.T) {
	rep := Report{Total: 3, OK: 2, Bad: 1, Failures: []Failure{{ID: "s7", Errors: []string{"missing sol", "pot mismatch: stored 10, history gives 13"}}}}
	var buf bytes.Buffer
	require.NoError(t, rep.WriteText(&buf))
	assert.Equal(t, "s7: missing sol\ns7: pot mismatch: stored 10, history gives 13\ntotal=3 ok=2 bad=1\n", buf.String())
}

func TestRunConversion(t *testing.T) {
	rn := &Runner{Validator: engine.NewValidator(nil)}
	rep, err := rn.Run(context.Background(), batch(3, map[int]bool{1: true}))
	require.NoError(t, err)

	run := rep.Run()
	assert.Equal(t, rep.RunID, run.ID)
	assert.Equal(t, 1, run.Bad)
	require.Len(t, run.Failures, 1)
	assert.Equal(t, "s2", run.Failures[0].ID)

	back := FromRun(run)
	assert.Equal(t, rep.Failures, back.Failures)
	assert.Equal(t, rep.Total, back.Total)
}

func TestCountRepairsWithoutProvider(t *testing.T) {
	CountRepairs(context.Background(), "test", 3)
	CountRepairs(context.Background(), "test", 0)
}
