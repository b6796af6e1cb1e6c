package util

import (
	"sync"

	"github.com/mikesparr/redis-workflow/logger"
	"go.uber.org/zap"
)

// Worker runs handler for every task sent to it, one at a time and in the
// order the tasks were sent.
type Worker[T any] struct {
	name     string
	stop     chan struct{}
	wg       *sync.WaitGroup
	handler  func(T) error
	taskChan chan T
	once     sync.Once
}

func NewWorker[T any](name string, wg *sync.WaitGroup, handler func(T) error, capacity int) *Worker[T] {
	return &Worker[T]{
		taskChan: make(chan T, capacity),
		name:     name,
		wg:       wg,
		stop:     make(chan struct{}),
		handler:  handler,
	}
}

func (w *Worker[T]) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		for {
			select {
			case task := <-w.taskChan:
				w.execute(task)
			case <-w.stop:
				// deliver whatever was queued before the stop
				for {
					select {
					case task := <-w.taskChan:
						w.execute(task)
					default:
						logger.Info("stopping worker", zap.String("worker", w.name))
						return
					}
				}
			}
		}
	}()
}

func (w *Worker[T]) execute(task T) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked in worker", zap.String("worker", w.name), zap.Any("panic", r))
		}
	}()
	if err := w.handler(task); err != nil {
		logger.Error("error in executing task in worker", zap.String("worker", w.name), zap.Any("task", task), zap.Error(err))
	}
}

func (w *Worker[T]) Sender() chan<- T {
	return w.taskChan
}

func (w *Worker[T]) Stop() {
	w.once.Do(func() {
		close(w.stop)
	})
}
