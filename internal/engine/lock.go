package engine

import (
	"sort"
	"sync"
)

// entryLockTable hands out one mutex per (date, session) key so that
// concurrent read-modify-writes of a schedule entry's counter serialise on
// that entry without blocking unrelated entries.
type entryLockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newEntryLockTable() *entryLockTable {
	return &entryLockTable{locks: make(map[string]*sync.Mutex)}
}

func (t *entryLockTable) get(key string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[key]
	if !ok {
		l = &sync.Mutex{}
		t.locks[key] = l
	}
	return l
}

// lock acquires the mutexes for the given keys in sorted order, so two calls
// touching the same pair of entries cannot deadlock. The returned func
// releases them in reverse order.
func (t *entryLockTable) lock(keys ...string) func() {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			uniq = append(uniq, k)
		}
	}
	sort.Strings(uniq)

	held := make([]*sync.Mutex, 0, len(uniq))
	for _, k := range uniq {
		l := t.get(k)
		l.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
