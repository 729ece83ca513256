package loadgen

import (
	"fmt"
	"sync"

	"github.com/relaykv/harness/pkg/logging"
)

// workerPool runs submitted tasks on a fixed number of goroutines. A
// panicking task is recovered and logged so one bad operation cannot take
// a worker down mid-run.
type workerPool struct {
	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
	mu    sync.RWMutex // guards tasks against close during Submit
	done  bool
	log   logging.Logger
}

func newWorkerPool(workers int, log logging.Logger) *workerPool {
	if workers <= 0 {
		workers = 1
	}
	p := &workerPool{
		tasks: make(chan func(), workers*2),
		log:   log,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *workerPool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.log.Error("worker recovered", logging.String("panic", fmt.Sprint(r)))
				}
			}()
			task()
		}()
	}
}

// Submit queues a task. Returns false once the pool has been waited on.
func (p *workerPool) Submit(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.done {
		return false
	}
	p.tasks <- task
	return true
}

// Wait closes the queue and blocks until every submitted task finished.
func (p *workerPool) Wait() {
	p.once.Do(func() {
		p.mu.Lock()
		p.done = true
		close(p.tasks)
		p.mu.Unlock()
	})
	p.wg.Wait()
}
