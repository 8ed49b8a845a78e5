package service

import (
	"context"
	"sync"
)

// LocalLocker is an in-process PrincipalLocker backed by a mutex per
// principal. It serializes same-principal logins within one process; use
// the redis lease when running more than one instance.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the principal's mutex is held. The map only grows;
// principals are few enough that eviction is not worth the bookkeeping.
func (l *LocalLocker) Lock(_ context.Context, principalID string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[principalID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[principalID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
