package sched

//go:generate stringer -type=State,Event -linecomment -output stringers.go .

// Priority orders tasks. Higher values preempt lower ones. Zero is the idle
// priority and is never assigned to a task.
type Priority uint8

// MaxPriority is the system priority while boot code runs, see [Scheduler.Init].
const MaxPriority Priority = 255

// Source is an interrupt line (event source) bound to exactly one task.
type Source uint8

// TaskID indexes the static task table passed to [New].
type TaskID uint8

// ResourceID indexes the resources declared in [Config].
type ResourceID uint8

const maxTasks = 64

// State is the execution state of a task.
type State uint8

const (
	StateIdle      State = iota // idle
	StatePending                // pending
	StateRunning                // running
	StatePreempted              // preempted
)

// Event is a scheduler event reported to a [Tracer].
type Event uint8

const (
	EventDispatch Event = iota // dispatch
	EventReturn                // return
	EventMissed                // missed
	EventRaise                 // raise
	EventRestore               // restore
)

// Tracer observes scheduler events. prio is the system priority after the
// event. EventMissed is the exception: it is reported from the goroutine that
// called Pend and prio is the static priority of the task whose trigger was
// missed. All other events come from the scheduler goroutine.
type Tracer func(ev Event, task TaskID, prio Priority)
