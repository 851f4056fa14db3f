// Package util
//
// This file provides the deadline queue used by the delivery layer.
//
// The queue combines a binary min-heap with a hash map. The heap orders
// entries by deadline so the scheduler only ever needs to look at the
// earliest one, while the map allows an entry to be found (and re-keyed)
// by its request id in O(1).
//
// Complexity:
//   - O(log n) for Push, Pop, RemoveByKey and priority updates
//   - O(1) for Peek and GetByKey
//
// Concurrency:
//   - The heap is not thread-safe. The delivery layer guards it with its own
//     mutex and never calls into message handlers while holding it.
//
// Re-adding a key replaces the deadline of the existing entry instead of
// creating a second one. A request id that is freed and reallocated
// therefore never leaves an older deadline behind in the heap.
//
// Example usage:
//
//	q := NewMapHeap()
//
//	q.AddItem(42, uint64(deadline.UnixNano()))
//
//	for _, it := range q.PopExpired(uint64(time.Now().UnixNano())) {
//	    // it.Key is the request id whose deadline passed
//	}
package util

import (
	"container/heap"
	"strconv"
)

// Item is a single entry of the heap: a key plus its priority (lower first).
type Item struct {
	Key      uint64 // Unique identifier (request id)
	Priority uint64 // Deadline in unix nanoseconds
	index    int    // Index in the heap, maintained by heap package
}

func (i *Item) String() string {
	return "{Key: " + strconv.FormatUint(i.Key, 10) + ", Priority: " + strconv.FormatUint(i.Priority, 10) + "}"
}

// MapHeap is a min-heap of items with key-based access
type MapHeap struct {
	items    []*Item          // The actual heap slice
	itemsMap map[uint64]*Item // Map for O(1) access by key
}

// NewMapHeap creates a new, empty and initialized heap
func NewMapHeap() *MapHeap {
	h := &MapHeap{
		items:    make([]*Item, 0),
		itemsMap: make(map[uint64]*Item),
	}
	heap.Init(h)
	return h
}

// Len returns the number of items in the queue (part of heap.Interface)
func (h *MapHeap) Len() int { return len(h.items) }

// Less orders by priority, earliest deadline first (part of heap.Interface)
func (h *MapHeap) Less(i, j int) bool {
	return h.items[i].Priority < h.items[j].Priority
}

// Swap exchanges items at positions i and j (part of heap.Interface)
func (h *MapHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

// Push adds an item to the heap (part of heap.Interface)
func (h *MapHeap) Push(x interface{}) {
	n := len(h.items)
	it := x.(*Item)
	it.index = n
	h.items = append(h.items, it)
	h.itemsMap[it.Key] = it
}

// Pop removes and returns the last item (part of heap.Interface)
func (h *MapHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil // Avoid memory leak
	it.index = -1
	h.items = old[:n-1]
	delete(h.itemsMap, it.Key)
	return it
}

// AddItem adds a new item or updates the priority of an existing one.
// It reports whether the item is now the minimum of the heap.
func (h *MapHeap) AddItem(key, priority uint64) (isMin bool) {
	if it, exists := h.itemsMap[key]; exists {
		it.Priority = priority
		heap.Fix(h, it.index)
		return h.items[0] == it
	}

	it := &Item{
		Key:      key,
		Priority: priority,
	}
	heap.Push(h, it)
	return h.items[0] == it
}

// RemoveByKey removes an item by its key and returns its priority
func (h *MapHeap) RemoveByKey(key uint64) (uint64, bool) {
	it, exists := h.itemsMap[key]
	if !exists {
		return 0, false
	}
	heap.Remove(h, it.index)
	return it.Priority, true
}

// Peek returns the minimum item without removing it
func (h *MapHeap) Peek() (*Item, bool) {
	if len(h.items) == 0 {
		return nil, false
	}
	return h.items[0], true
}

// PopExpired removes and returns every item with a priority <= limit,
// in ascending priority order.
func (h *MapHeap) PopExpired(limit uint64) []*Item {
	var expired []*Item
	for len(h.items) > 0 && h.items[0].Priority <= limit {
		expired = append(expired, heap.Pop(h).(*Item))
	}
	return expired
}

// GetByKey retrieves an item by its key without removing it
func (h *MapHeap) GetByKey(key uint64) (*Item, bool) {
	it, exists := h.itemsMap[key]
	return it, exists
}
