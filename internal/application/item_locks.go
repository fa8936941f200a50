package application

import "sync"

// ItemLocks serializes mutations per (orderId, itemCode). Entries are dropped once no
// goroutine holds or waits on them.
type ItemLocks struct {
	mu    sync.Mutex
	locks map[string]*itemLock
}

type itemLock struct {
	mu   sync.Mutex
	refs int
}

// NewItemLocks creates an empty lock table
func NewItemLocks() *ItemLocks {
	return &ItemLocks{locks: make(map[string]*itemLock)}
}

// Lock blocks until the item is free and returns its unlock function
func (l *ItemLocks) Lock(orderID, itemCode string) func() {
	key := orderID + "\x00" + itemCode

	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &itemLock{}
		l.locks[key] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

func (l *ItemLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
