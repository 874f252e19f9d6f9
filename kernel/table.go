package kernel

import (
	"github.com/pkg/errors"
)

// MaxProcs is the process table capacity.
const MaxProcs = 64

var (
	ErrProcessLimit = errors.New("process table full")
	ErrNoProcess    = errors.New("no such process")
)

type slotKind int

const (
	// slotEmpty marks a never-used slot; the free chain continues
	// through empty slots in array order.
	slotEmpty slotKind = iota
	slotFree
	slotAlive
)

// slot is one process table entry: a live process record, a link in the
// free-index chain, or never-yet-used.
type slot struct {
	kind slotKind
	next Pid
	proc Process
}

// table is a fixed arena of process records with a free chain threaded
// through the unused slots. freeHead is the cursor to the lowest known
// free slot.
type table struct {
	slots    [MaxProcs]slot
	freeHead Pid
}

// alloc returns the lowest-numbered free pid and marks it in use.
func (t *table) alloc() (Pid, error) {
	id := t.freeHead
	if id < 0 || int(id) >= MaxProcs {
		return 0, ErrProcessLimit
	}

	s := &t.slots[id]

	switch s.kind {
	case slotAlive:
		// The cursor landing on a live slot means every id is taken.
		return 0, ErrProcessLimit
	case slotFree:
		t.freeHead = s.next
	case slotEmpty:
		// Chain exhausted; continue by array order.
		t.freeHead = id + 1
	}

	s.kind = slotAlive
	s.proc = Process{}

	return id, nil
}

// free relinks id as the new head of the free chain. Ids are reused in
// LIFO order relative to the chain head.
func (t *table) free(id Pid) {
	s := &t.slots[id]
	if s.kind != slotAlive {
		fault("freeing pid %d which is not alive", id)
	}

	s.kind = slotFree
	s.proc = Process{}
	s.next = t.freeHead
	t.freeHead = id
}

// proc returns the record stored in slot id without liveness checks; the
// caller must hold a pid it just allocated.
func (t *table) proc(id Pid) *Process {
	return &t.slots[id].proc
}

// lookup returns the live process for id.
func (t *table) lookup(id Pid) (*Process, error) {
	if id < 0 || int(id) >= MaxProcs {
		return nil, errors.Wrapf(ErrNoProcess, "pid %d", id)
	}

	s := &t.slots[id]
	if s.kind != slotAlive {
		return nil, errors.Wrapf(ErrNoProcess, "pid %d", id)
	}

	return &s.proc, nil
}
