package sched

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/soypat/lgate"
	"github.com/soypat/lgate/internal"
)

// Task is an entry of the static task table.
type Task struct {
	Name     string
	Priority Priority
	// Source is the interrupt line that pends the task.
	Source Source
	// Uses declares every resource the task may lock.
	Uses []ResourceID
	Run  func(*Context)
}

// Config is the static task table and resource declarations of a [Scheduler].
type Config struct {
	Tasks []Task
	// Resources names the shared resources. A ResourceID indexes this slice.
	Resources []string
	Tracer    Tracer
	Logger    *slog.Logger
}

type task struct {
	Task
	state  atomic.Uint32 // Idle, Running or Preempted. Pending is kept in Scheduler.pending.
	missed atomic.Uint32
	uses   uint64 // Bitmask of declared resources.
}

// Scheduler dispatches tasks by static priority and enforces the stack resource
// policy: locking a resource raises the system priority to the resource ceiling.
//
// Pend is safe for concurrent use and is how interrupts are signalled. Every
// other method must be called from the goroutine running [Scheduler.Run] or
// [Scheduler.Poll], or from within a task.
type Scheduler struct {
	tasks     []task
	order     []TaskID // Tasks by descending priority.
	bySource  [256]int16
	ceilings  []Priority
	resources []string
	locked    []bool
	pending   atomic.Uint64
	wake      chan struct{}
	current   Priority
	running   int16
	tracer    Tracer
	logger
}

// New validates the static table and computes the resource ceilings.
func New(cfg Config) (*Scheduler, error) {
	if len(cfg.Tasks) == 0 || len(cfg.Tasks) > maxTasks {
		return nil, fmt.Errorf("sched: need 1..%d tasks: %w", maxTasks, lgate.ErrInvalidConfig)
	} else if len(cfg.Resources) > 64 {
		return nil, fmt.Errorf("sched: too many resources: %w", lgate.ErrInvalidConfig)
	}
	s := &Scheduler{
		tasks:     make([]task, len(cfg.Tasks)),
		order:     make([]TaskID, len(cfg.Tasks)),
		ceilings:  make([]Priority, len(cfg.Resources)),
		resources: cfg.Resources,
		locked:    make([]bool, len(cfg.Resources)),
		wake:      make(chan struct{}, 1),
		running:   -1,
		tracer:    cfg.Tracer,
		logger:    logger{log: cfg.Logger},
	}
	for i := range s.bySource {
		s.bySource[i] = -1
	}
	for i, tk := range cfg.Tasks {
		switch {
		case tk.Priority == 0 || tk.Priority == MaxPriority:
			return nil, fmt.Errorf("sched: task %q priority out of range: %w", tk.Name, lgate.ErrInvalidConfig)
		case tk.Run == nil:
			return nil, fmt.Errorf("sched: task %q has no Run: %w", tk.Name, lgate.ErrInvalidConfig)
		case s.bySource[tk.Source] >= 0:
			return nil, fmt.Errorf("sched: source %d bound twice: %w", tk.Source, lgate.ErrInvalidConfig)
		}
		s.bySource[tk.Source] = int16(i)
		t := &s.tasks[i]
		t.Task = tk
		for _, rid := range tk.Uses {
			if int(rid) >= len(cfg.Resources) {
				return nil, fmt.Errorf("sched: task %q uses undeclared resource %d: %w", tk.Name, rid, lgate.ErrInvalidConfig)
			}
			t.uses |= 1 << rid
			s.ceilings[rid] = max(s.ceilings[rid], tk.Priority)
		}
		s.order[i] = TaskID(i)
	}
	sort.SliceStable(s.order, func(i, j int) bool {
		return s.tasks[s.order[i]].Priority > s.tasks[s.order[j]].Priority
	})
	return s, nil
}

// Pend marks the task bound to src as pending and wakes the scheduler. If the
// task is already pending the trigger is counted as missed. A trigger while
// the task runs results in exactly one follow-up dispatch. Pend never blocks
// and is safe for concurrent use. Pending an unbound source panics.
func (s *Scheduler) Pend(src Source) {
	id := s.bySource[src]
	if id < 0 {
		panic("sched: pend of unbound source")
	}
	bit := uint64(1) << id
	if s.pending.Or(bit)&bit != 0 {
		n := s.tasks[id].missed.Add(1)
		s.debug("sched:missed", slog.String("task", s.tasks[id].Name), slog.Uint64("missed", uint64(n)))
		if s.tracer != nil {
			// Called off the scheduler goroutine: report only immutable task state.
			s.tracer(EventMissed, TaskID(id), s.tasks[id].Priority)
		}
		return
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run dispatches pending tasks and waits for interrupts when idle until ctx is
// done. Run returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		s.Poll()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		}
	}
}

// Poll dispatches pending tasks until none is pending and returns the amount of
// dispatches. It does not block.
func (s *Scheduler) Poll() (dispatched int) {
	if s.running >= 0 || s.current != 0 {
		panic("sched: Poll called from task context")
	}
	return s.dispatchAbove(0)
}

// Init runs boot code at [MaxPriority] with every resource accessible. Tasks
// pended during Init are dispatched by the next Run or Poll.
func (s *Scheduler) Init(fn func(*Context)) {
	prev := s.current
	s.current = MaxPriority
	defer func() { s.current = prev }()
	fn(&Context{s: s, id: -1})
}

// State returns the execution state of a task. Safe for concurrent use.
func (s *Scheduler) State(id TaskID) State {
	st := State(s.tasks[id].state.Load())
	if st == StateIdle && s.pending.Load()&(1<<id) != 0 {
		return StatePending
	}
	return st
}

// Missed returns the amount of triggers of a task lost because it was already pending.
// Safe for concurrent use.
func (s *Scheduler) Missed(id TaskID) uint32 { return s.tasks[id].missed.Load() }

// Ceiling returns the priority ceiling of a resource.
func (s *Scheduler) Ceiling(id ResourceID) Priority { return s.ceilings[id] }

// Current returns the system priority: that of the running task or of the
// highest ceiling locked, zero when idle.
func (s *Scheduler) Current() Priority { return s.current }

// Task returns the static descriptor of a task.
func (s *Scheduler) Task(id TaskID) Task { return s.tasks[id].Task }

// NumTasks returns the length of the task table.
func (s *Scheduler) NumTasks() int { return len(s.tasks) }

func (s *Scheduler) dispatchAbove(prio Priority) (dispatched int) {
	for {
		id, ok := s.highestPending(prio)
		if !ok {
			return dispatched
		}
		s.pending.And(^(uint64(1) << id))
		s.dispatch(id)
		dispatched++
	}
}

func (s *Scheduler) highestPending(above Priority) (TaskID, bool) {
	pend := s.pending.Load()
	if pend == 0 {
		return 0, false
	}
	for _, id := range s.order {
		if s.tasks[id].Priority <= above {
			break
		}
		if pend&(1<<id) != 0 {
			return id, true
		}
	}
	return 0, false
}

func (s *Scheduler) dispatch(id TaskID) {
	t := &s.tasks[id]
	prevPrio, prevTask := s.current, s.running
	if prevTask >= 0 {
		s.tasks[prevTask].state.Store(uint32(StatePreempted))
	}
	s.current = t.Priority
	s.running = int16(id)
	t.state.Store(uint32(StateRunning))
	s.trace(EventDispatch, id)
	s.logger.traceDispatch(t.Name, t.Priority)
	defer func() {
		t.state.Store(uint32(StateIdle))
		s.current, s.running = prevPrio, prevTask
		if prevTask >= 0 {
			s.tasks[prevTask].state.Store(uint32(StateRunning))
		}
		s.trace(EventReturn, id)
	}()
	t.Run(&Context{s: s, id: int16(id)})
}

func (s *Scheduler) trace(ev Event, id TaskID) {
	if s.tracer != nil {
		s.tracer(ev, id, s.current)
	}
}

// Context is handed to a running task and to boot code. It grants access to
// the resources the task declared.
type Context struct {
	s  *Scheduler
	id int16 // -1 during Init.
}

// Task returns the ID of the running task. It panics during Init.
func (c *Context) Task() TaskID {
	if c.id < 0 {
		panic("sched: no task during init")
	}
	return TaskID(c.id)
}

// Pend is a software trigger. The pended task preempts the caller right away
// if its priority is above the current system priority.
func (c *Context) Pend(src Source) {
	c.s.Pend(src)
	c.Yield()
}

// Yield is a preemption point: tasks pending above the current system
// priority are dispatched before Yield returns.
func (c *Context) Yield() {
	if c.id < 0 {
		return // Boot code is never preempted.
	}
	c.s.dispatchAbove(c.s.current)
}

func (c *Context) mayUse(rid ResourceID) bool {
	return c.id < 0 || c.s.tasks[c.id].uses&(1<<rid) != 0
}

type logger struct {
	log *slog.Logger
}

func (l *logger) debug(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, slog.LevelDebug, msg, attrs...)
}

func (l *logger) traceDispatch(name string, prio Priority) {
	if internal.LogEnabled(l.log, internal.LevelTrace) {
		internal.LogAttrs(l.log, internal.LevelTrace, "sched:dispatch", slog.String("task", name), slog.Int("prio", int(prio)))
	}
}
