package tariff

import (
	"slices"
	"sync"
)

// keyLock serializes writers per key. Entries are dropped once no writer
// holds or waits on them.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*lockEntry)}
}

// Lock acquires every key in sorted order and returns the release func.
// Duplicate keys are acquired once.
func (k *keyLock) Lock(keys ...string) (unlock func()) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	entries := make([]*lockEntry, len(keys))
	k.mu.Lock()
	for i, key := range keys {
		le, ok := k.locks[key]
		if !ok {
			le = &lockEntry{}
			k.locks[key] = le
		}
		le.refs++
		entries[i] = le
	}
	k.mu.Unlock()

	for _, le := range entries {
		le.mu.Lock()
	}

	return func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
		}
		k.mu.Lock()
		for i, key := range keys {
			entries[i].refs--
			if entries[i].refs == 0 {
				delete(k.locks, key)
			}
		}
		k.mu.Unlock()
	}
}

func categoryLock(categoryID string) string { return "category:" + categoryID }
func settingKeyLock(key string) string      { return "setting-key:" + key }
func ruleLock(ruleID string) string         { return "rule:" + ruleID }
