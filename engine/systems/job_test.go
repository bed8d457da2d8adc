package systems

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima/engine/core"
)

func TestNewJobSystem_Validation(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	require.ErrorIs(t, err, core.ErrNoWorkers)

	_, err = NewJobSystem(1, -1)
	require.ErrorIs(t, err, core.ErrNegativeChannelSize)
}

func TestJobSystem_RunsAndJoins(t *testing.T) {
	js, err := NewJobSystem(4, 8)
	require.NoError(t, err)
	defer js.Shutdown()

	var completed, failed atomic.Int32
	var tasks []*Task
	for i := 0; i < 20; i++ {
		i := i
		task, err := js.Submit(JobTask{
			Name: "job",
			OnStart: func() error {
				if i%5 == 0 {
					return errors.New("boom")
				}
				return nil
			},
			OnComplete: func() { completed.Add(1) },
			OnFailure:  func(error) { failed.Add(1) },
		})
		require.NoError(t, err)
		tasks = append(tasks, task)
	}

	require.Equal(t, 4, WaitAll(tasks))
	require.Equal(t, int32(16), completed.Load())
	require.Equal(t, int32(4), failed.Load())
}

func TestJobSystem_PanicBecomesError(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	require.NoError(t, err)
	defer js.Shutdown()

	task, err := js.Submit(JobTask{Name: "panics", OnStart: func() error { panic("bad encoder") }, OnFailure: func(error) {}})
	require.NoError(t, err)
	require.ErrorContains(t, task.Wait(), "bad encoder")
}

func TestJobSystem_SubmitAfterShutdown(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	require.NoError(t, err)
	require.NoError(t, js.Shutdown())
	require.NoError(t, js.Shutdown())

	_, err = js.Submit(JobTask{Name: "late", OnStart: func() error { return nil }})
	require.ErrorIs(t, err, core.ErrJobSystemClosed)
}
