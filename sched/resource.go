package sched

import (
	"fmt"

	"github.com/soypat/lgate"
)

// Resource is shared state guarded by the stack resource policy. The value is
// only reachable through [Lock].
type Resource[T any] struct {
	s  *Scheduler
	id ResourceID
	v  T
}

// NewResource binds v to the declared resource id of s.
func NewResource[T any](s *Scheduler, id ResourceID, v T) (*Resource[T], error) {
	if int(id) >= len(s.ceilings) {
		return nil, fmt.Errorf("sched: resource %d not declared: %w", id, lgate.ErrInvalidConfig)
	}
	return &Resource[T]{s: s, id: id, v: v}, nil
}

// ID returns the resource identifier.
func (r *Resource[T]) ID() ResourceID { return r.id }

// Lock runs fn with exclusive access to the resource value. The system priority
// is raised to the resource ceiling for the duration of fn and restored on every
// exit path. After a normal return tasks pended meanwhile above the restored
// priority are dispatched. Locking a resource the task did not declare, or
// locking it again from within fn, panics.
func Lock[T any](c *Context, r *Resource[T], fn func(*T)) {
	s := c.s
	if r.s != s {
		panic("sched: resource of another scheduler")
	} else if !c.mayUse(r.id) {
		panic("sched: lock of undeclared resource " + s.resources[r.id])
	} else if s.locked[r.id] {
		panic("sched: resource locked twice " + s.resources[r.id])
	}
	prev := s.current
	s.current = max(prev, s.ceilings[r.id])
	s.locked[r.id] = true
	s.traceCurrent(EventRaise, c)
	func() {
		defer func() {
			s.locked[r.id] = false
			s.current = prev
			s.traceCurrent(EventRestore, c)
		}()
		fn(&r.v)
	}()
	c.Yield()
}

func (s *Scheduler) traceCurrent(ev Event, c *Context) {
	if s.tracer != nil && c.id >= 0 {
		s.tracer(ev, TaskID(c.id), s.current)
	}
}
