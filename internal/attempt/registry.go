package attempt

import (
	"sync"

	"github.com/stemsi/exam-portal/internal/metrics"
	"github.com/stemsi/exam-portal/internal/model"
)

type registryKey struct {
	studentID model.ID
	examID    model.ID
}

// Registry tracks the mounted attempt for each (student, exam) pair.
type Registry struct {
	mu       sync.Mutex
	attempts map[registryKey]*Attempt
}

func NewRegistry() *Registry {
	return &Registry{attempts: make(map[registryKey]*Attempt)}
}

// Mount registers a as the owner of its (student, exam) pair. A previously
// mounted attempt for the same pair is closed.
func (r *Registry) Mount(a *Attempt) {
	key := registryKey{studentID: a.StudentID(), examID: a.ExamID()}

	r.mu.Lock()
	prev := r.attempts[key]
	r.attempts[key] = a
	r.mu.Unlock()

	if prev != nil && prev != a {
		prev.Close()
		return
	}
	if prev == nil {
		metrics.AttemptMounted(1)
	}
}

// Unmount closes a and forgets it, unless a newer attempt already took its
// place.
func (r *Registry) Unmount(a *Attempt) {
	key := registryKey{studentID: a.StudentID(), examID: a.ExamID()}

	r.mu.Lock()
	owned := r.attempts[key] == a
	if owned {
		delete(r.attempts, key)
	}
	r.mu.Unlock()

	a.Close()
	if owned {
		metrics.AttemptMounted(-1)
	}
}

// Get returns the mounted attempt for the pair.
func (r *Registry) Get(studentID, examID model.ID) (*Attempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[registryKey{studentID: studentID, examID: examID}]
	return a, ok
}

// Len reports the number of mounted attempts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

// CloseAll unmounts every attempt. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*Attempt, 0, len(r.attempts))
	for key, a := range r.attempts {
		all = append(all, a)
		delete(r.attempts, key)
	}
	r.mu.Unlock()

	for _, a := range all {
		a.Close()
		metrics.AttemptMounted(-1)
	}
}
