package usage

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Worker flushes a Buffer on a fixed interval until stopped.
type Worker struct {
	buffer   *Buffer
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

func NewWorker(buffer *Buffer, interval time.Duration) *Worker {
	return &Worker{buffer: buffer, interval: interval}
}

func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}

	w.stopCh = make(chan struct{})
	w.running = true
	log.Infof("[Usage] Starting flush worker every %v", w.interval)

	ticker := time.NewTicker(w.interval)
	w.wg.Add(1)
	go w.run(ticker, w.stopCh)
}

// Stop ends the worker after a final flush.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}

	close(w.stopCh)
	w.running = false
	w.wg.Wait()
	log.Info("[Usage] Flush worker stopped")
}

func (w *Worker) run(ticker *time.Ticker, stopCh chan struct{}) {
	defer w.wg.Done()
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.flush()
		case <-stopCh:
			w.flush()
			return
		}
	}
}

func (w *Worker) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()
	n, err := w.buffer.Flush(ctx)
	if err != nil {
		log.Errorf("[Usage] Flush failed: %v", err)
		return
	}
	if n > 0 {
		log.Infof("[Usage] Reported usage for %d accounts", n)
	}
}
