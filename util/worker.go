package util

import (
	"sync"

	"github.com/mohitkumar/flowcall/logger"
	"go.uber.org/zap"
)

type Task any

// Worker drains a buffered task channel on a single goroutine, so tasks run
// one at a time in submission order.
type Worker struct {
	name     string
	stop     chan struct{}
	stopOnce sync.Once
	wg       *sync.WaitGroup
	handler  func(Task) error
	tasks    chan Task
}

func NewWorker(name string, wg *sync.WaitGroup, handler func(Task) error, capacity int) *Worker {
	return &Worker{
		tasks:   make(chan Task, capacity),
		name:    name,
		wg:      wg,
		stop:    make(chan struct{}),
		handler: handler,
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case task := <-w.tasks:
				if err := w.handler(task); err != nil {
					logger.Error("error in executing task in worker", zap.String("worker", w.name), zap.Any("task", task), zap.Error(err))
				}
			case <-w.stop:
				logger.Info("stopping worker", zap.String("worker", w.name))
				return
			}
		}
	}()
}

// Submit queues task without blocking and reports false when the queue is full.
func (w *Worker) Submit(task Task) bool {
	select {
	case w.tasks <- task:
		return true
	default:
		logger.Warn("worker queue full, task rejected", zap.String("worker", w.name))
		return false
	}
}

func (w *Worker) Stop() error {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	return nil
}
