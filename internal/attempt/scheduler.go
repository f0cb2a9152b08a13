package attempt

import (
	"sync"
	"time"
)

// Task is a scheduled callback that can be cancelled. Stop is idempotent and
// guarantees fn is not started again after it returns.
type Task interface {
	Stop()
}

// Scheduler establishes repeating and one-shot callbacks.
type Scheduler interface {
	Every(d time.Duration, fn func()) Task
	After(d time.Duration, fn func()) Task
}

// TimeScheduler runs callbacks on the runtime timers.
type TimeScheduler struct{}

// Every runs fn every d on its own goroutine until stopped.
func (TimeScheduler) Every(d time.Duration, fn func()) Task {
	t := &tickerTask{ticker: time.NewTicker(d), done: make(chan struct{})}
	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-t.ticker.C:
				select {
				case <-t.done:
					return
				default:
				}
				fn()
			}
		}
	}()
	return t
}

// After runs fn once after d unless stopped first.
func (TimeScheduler) After(d time.Duration, fn func()) Task {
	return timerTask{time.AfterFunc(d, fn)}
}

type tickerTask struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *tickerTask) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}

type timerTask struct{ timer *time.Timer }

func (t timerTask) Stop() { t.timer.Stop() }
