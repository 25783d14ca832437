package timer

import (
	"container/heap"
	"errors"
	"sync"
	"time"
)

// ErrManagerStopped is returned by Schedule after Stop
var ErrManagerStopped = errors.New("timer manager is stopped")

// task is a deadline callback pending execution
type task struct {
	id       string
	deadline time.Time
	callback func()
	index    int // index in the heap
}

// taskHeap is a min-heap of tasks ordered by deadline
type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	return h[i].deadline.Before(h[j].deadline)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x interface{}) {
	n := len(*h)
	t := x.(*task)
	t.index = n
	*h = append(*h, t)
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[0 : n-1]
	return t
}

// Manager runs callbacks at deadlines. It is used to enforce report-job
// lifetimes: one scheduled task per running job, cancelled when the job
// finishes first. Callbacks run on their own goroutines.
type Manager struct {
	heap    taskHeap
	tasks   map[string]*task // O(1) lookup for Cancel / reschedule
	mu      sync.Mutex
	wakeup  chan struct{}
	stopCh  chan struct{}
	stopped bool
}

// NewManager creates a manager; call Start before scheduling
func NewManager() *Manager {
	m := &Manager{
		heap:   make(taskHeap, 0),
		tasks:  make(map[string]*task),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
	heap.Init(&m.heap)
	return m
}

// Start starts the scheduler goroutine
func (m *Manager) Start() {
	go m.run()
}

// Stop stops the manager; pending tasks are discarded
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.stopCh)
	m.mu.Unlock()
}

// Schedule registers a callback to run at deadline. Scheduling an id that
// is already pending replaces it.
func (m *Manager) Schedule(id string, deadline time.Time, callback func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrManagerStopped
	}

	if existing, ok := m.tasks[id]; ok {
		heap.Remove(&m.heap, existing.index)
		delete(m.tasks, id)
	}

	t := &task{
		id:       id,
		deadline: deadline,
		callback: callback,
	}

	heap.Push(&m.heap, t)
	m.tasks[id] = t

	// Wake the scheduler if this became the earliest deadline
	if m.heap[0] == t {
		select {
		case m.wakeup <- struct{}{}:
		default:
		}
	}

	return nil
}

// Cancel removes a pending task; it reports whether one was pending
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return false
	}

	heap.Remove(&m.heap, t.index)
	delete(m.tasks, id)
	return true
}

// Pending returns the number of scheduled tasks
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// run is the scheduler loop
func (m *Manager) run() {
	for {
		m.mu.Lock()

		if m.stopped {
			m.mu.Unlock()
			return
		}

		var waitDuration time.Duration
		if m.heap.Len() == 0 {
			// Nothing pending, sleep until woken
			waitDuration = 24 * time.Hour
		} else {
			next := m.heap[0]
			waitDuration = time.Until(next.deadline)

			if waitDuration <= 0 {
				t := heap.Pop(&m.heap).(*task)
				delete(m.tasks, t.id)

				go t.callback()

				m.mu.Unlock()
				continue
			}
		}

		m.mu.Unlock()

		timer := time.NewTimer(waitDuration)
		select {
		case <-timer.C:
			// Check for expired tasks
		case <-m.wakeup:
			// Earlier deadline scheduled
			timer.Stop()
		case <-m.stopCh:
			timer.Stop()
			return
		}
	}
}
