package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima/engine/core"
)

/** @brief A joinable handle to one submitted job. */
type Task struct {
	Name string
	done chan struct{}
	err  error
}

func newTask(name string) *Task {
	return &Task{Name: name, done: make(chan struct{})}
}

// Wait blocks until the job finished and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Done is closed once the job finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

/**
 * @brief Describes a job to be run.
 */
type JobTask struct {
	/** @brief Used in logs. */
	Name string
	/** @brief Invoked on a worker when the job starts. Required. */
	OnStart func() error
	/** @brief Invoked when OnStart returned no error. Optional. */
	OnComplete func()
	/** @brief Invoked with the error of OnStart. Optional. */
	OnFailure func(error)
}

type job struct {
	info JobTask
	task *Task
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan job
	wg         sync.WaitGroup

	mutex  sync.RWMutex
	closed bool
}

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, core.ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, core.ErrNegativeChannelSize
	}

	jq := make(chan job, channelSize)
	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   jq,
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for j := range js.jobQueue {
				js.run(j)
			}
		}()
	}
}

func (js *JobSystem) run(j job) {
	err := safeStart(j.info)
	if err != nil {
		if j.info.OnFailure != nil {
			j.info.OnFailure(err)
		} else {
			core.LogError("job %s failed: %s", j.info.Name, err.Error())
		}
	} else if j.info.OnComplete != nil {
		j.info.OnComplete()
	}
	j.task.finish(err)
}

// safeStart turns a panicking job into a failed one so a worker never dies.
func safeStart(info JobTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", info.Name, r)
		}
	}()
	if info.OnStart == nil {
		return fmt.Errorf("job %s has no entry point", info.Name)
	}
	return info.OnStart()
}

/**
 * @brief Shuts the job system down. Queued jobs still run.
 */
func (js *JobSystem) Shutdown() error {
	js.mutex.Lock()
	if js.closed {
		js.mutex.Unlock()
		return nil
	}
	js.closed = true
	close(js.jobQueue)
	js.mutex.Unlock()

	js.wg.Wait()
	return nil
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks
 * while the queue is full.
 */
func (js *JobSystem) Submit(jt JobTask) (*Task, error) {
	js.mutex.RLock()
	defer js.mutex.RUnlock()
	if js.closed {
		return nil, core.ErrJobSystemClosed
	}

	t := newTask(jt.Name)
	js.jobQueue <- job{info: jt, task: t}
	return t, nil
}

// WaitAll joins every task and returns how many of them failed.
func WaitAll(tasks []*Task) int {
	failed := 0
	for _, t := range tasks {
		if t.Wait() != nil {
			failed++
		}
	}
	return failed
}
