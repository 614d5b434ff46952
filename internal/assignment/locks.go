package assignment

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// EmployeeLocks serializes commits per employee within one process.
// Cross-process exclusion is the store's job. Mutexes are never evicted, so
// the registry holds one entry per employee ever committed; fine for a
// bounded technician pool.
type EmployeeLocks struct {
	m *xsync.MapOf[string, *sync.Mutex]
}

func NewEmployeeLocks() *EmployeeLocks {
	return &EmployeeLocks{m: xsync.NewMapOf[string, *sync.Mutex]()}
}

// Lock blocks until the employee's lock is held and returns its release func.
func (l *EmployeeLocks) Lock(employeeID string) func() {
	mu, _ := l.m.LoadOrStore(employeeID, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}
