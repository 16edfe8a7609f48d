package dispatch

import "slices"

// entry is a queued or in-flight task bound to its batch slot.
type entry struct {
	key   string
	task  Task
	batch *batch
	index int
}

// taskQueue is a deque with high priority entries kept at the front.
// It is not safe for concurrent use; Pool guards it with its mutex.
type taskQueue struct {
	items []*entry
	high  int
}

func (q *taskQueue) push(e *entry) {
	if e.task.Priority == PriorityHigh {
		q.items = slices.Insert(q.items, q.high, e)
		q.high++
		return
	}
	q.items = append(q.items, e)
}

func (q *taskQueue) pop() (*entry, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	e := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if q.high > 0 {
		q.high--
	}
	return e, true
}

// drop removes every entry of b and returns them in queue order.
func (q *taskQueue) drop(b *batch) []*entry {
	var dropped []*entry
	kept := q.items[:0]
	high := 0
	for i, e := range q.items {
		if e.batch == b {
			dropped = append(dropped, e)
			continue
		}
		if i < q.high {
			high++
		}
		kept = append(kept, e)
	}
	clear(q.items[len(kept):])
	q.items = kept
	q.high = high
	return dropped
}

func (q *taskQueue) len() int { return len(q.items) }
