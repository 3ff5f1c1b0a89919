package monitor

import (
	"container/heap"
	"sort"
	"sync"
	"time"

	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"
)

// queuedTask wraps a task with queue bookkeeping.
type queuedTask struct {
	task     v1.Task
	queuedAt time.Time
	index    int // index in the heap
}

// taskHeap implements heap.Interface, ordered by priority (higher first)
// and queue time (earlier first) within the same priority.
type taskHeap []*queuedTask

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority > h[j].task.Priority
	}
	return h[i].queuedAt.Before(h[j].queuedAt)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x interface{}) {
	item := x.(*queuedTask)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// taskQueue is a bounded priority queue of pending tasks.
type taskQueue struct {
	mu      sync.RWMutex
	heap    taskHeap
	taskMap map[string]*queuedTask
	maxSize int
}

func newTaskQueue(maxSize int) *taskQueue {
	q := &taskQueue{
		heap:    make(taskHeap, 0),
		taskMap: make(map[string]*queuedTask),
		maxSize: maxSize,
	}
	heap.Init(&q.heap)
	return q
}

// enqueue adds a task to the queue. Returns ErrTaskExists when the id is
// already queued and ErrQueueFull when the queue is at capacity.
func (q *taskQueue) enqueue(task v1.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.taskMap[task.ID]; exists {
		return ErrTaskExists
	}
	if q.maxSize > 0 && len(q.heap) >= q.maxSize {
		return ErrQueueFull
	}

	item := &queuedTask{
		task:     task,
		queuedAt: time.Now(),
	}
	heap.Push(&q.heap, item)
	q.taskMap[task.ID] = item
	return nil
}

// dequeue removes and returns the highest-priority task, or false when the
// queue is empty.
func (q *taskQueue) dequeue() (v1.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return v1.Task{}, false
	}

	item := heap.Pop(&q.heap).(*queuedTask)
	delete(q.taskMap, item.task.ID)
	return item.task, true
}

func (q *taskQueue) len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.heap)
}

// list returns queued tasks in dequeue order without removing them.
func (q *taskQueue) list() []v1.Task {
	q.mu.RLock()
	defer q.mu.RUnlock()

	items := make([]*queuedTask, len(q.heap))
	copy(items, q.heap)
	sort.Slice(items, func(i, j int) bool {
		if items[i].task.Priority != items[j].task.Priority {
			return items[i].task.Priority > items[j].task.Priority
		}
		return items[i].queuedAt.Before(items[j].queuedAt)
	})

	tasks := make([]v1.Task, len(items))
	for i, item := range items {
		tasks[i] = item.task
	}
	return tasks
}
