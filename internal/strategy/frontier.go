// Package strategy implements the crawl strategies that walk seed URLs
// and turn pages into candidate entities.
package strategy

import (
	"container/heap"

	"github.com/kidsparis/activity-crawler/internal/activity"
)

// frontierItem is one queued URL with its priority and link depth.
type frontierItem struct {
	seed  activity.Seed
	depth int
	order int
}

// Frontier is a priority queue over pending URLs. Higher priority pops
// first; equal priorities pop in insertion order so the walk stays
// deterministic.
type Frontier struct {
	items frontierHeap
	next  int
}

func NewFrontier() *Frontier {
	return &Frontier{}
}

func (f *Frontier) Push(seed activity.Seed, depth int) {
	heap.Push(&f.items, frontierItem{seed: seed, depth: depth, order: f.next})
	f.next++
}

func (f *Frontier) Pop() (activity.Seed, int, bool) {
	if f.items.Len() == 0 {
		return activity.Seed{}, 0, false
	}
	item := heap.Pop(&f.items).(frontierItem)
	return item.seed, item.depth, true
}

func (f *Frontier) Len() int { return f.items.Len() }

type frontierHeap []frontierItem

func (h frontierHeap) Len() int { return len(h) }

func (h frontierHeap) Less(i, j int) bool {
	if h[i].seed.Priority != h[j].seed.Priority {
		return h[i].seed.Priority > h[j].seed.Priority
	}
	return h[i].order < h[j].order
}

func (h frontierHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *frontierHeap) Push(x any) { *h = append(*h, x.(frontierItem)) }

func (h *frontierHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
