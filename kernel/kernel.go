package kernel

import (
	"github.com/danielg0/quintos/abi"
	"github.com/danielg0/quintos/loader"
	"github.com/danielg0/quintos/pkg/ilist"
	"github.com/danielg0/quintos/pkg/waiter"
)

// Kernel lifecycle events published through Events.
const (
	ProcessCreated waiter.EventType = 1 << iota
	ProcessDestroyed
)

// Kernel is the process lifecycle and scheduling core. It owns the process
// table, the tiered ready queues, the blocked queue, the idle process and
// the syscall dispatch table. One Kernel is constructed at initialization
// and lives for the whole run; every operation takes it explicitly.
//
// The kernel executes as a single logical flow reached through trap entry,
// so nothing here is synchronized. The trap path must keep kernel-state
// mutating code non-preemptible.
type Kernel struct {
	table table

	tiers   [numTiers]ilist.List
	blocked ilist.List

	idle Process

	handlers [abi.MaxSyscall]handlerEntry

	loader *loader.Loader

	Events waiter.Waiter
}

// NewKernel constructs the kernel context and its permanent idle process.
// The idle process lives outside the process table and is never a member
// of any queue; it is what runs when every ready tier is empty.
func NewKernel(ld *loader.Loader) *Kernel {
	k := &Kernel{
		loader: ld,
	}

	k.idle = Process{
		Pid:   IdlePid,
		state: Ready,
		magic: procMagic,
	}
	k.idle.setName("idle")

	return k
}

// Idle returns the permanent idle process, the process that is current at
// boot before the first trap.
func (k *Kernel) Idle() *Process {
	return &k.idle
}

// Lookup returns the live process for pid.
func (k *Kernel) Lookup(pid Pid) (*Process, error) {
	return k.table.lookup(pid)
}

// assertValid halts the kernel unless p is a reachable, uncorrupted
// process record: the tag must match and, for table processes, the record
// must be the live occupant of its own slot.
func (k *Kernel) assertValid(p *Process) {
	if p == nil {
		fault("nil process")
	}

	if p.magic != procMagic {
		fault("corrupt process record, tag %x", p.magic)
	}

	if p == &k.idle {
		return
	}

	got, err := k.table.lookup(p.Pid)
	if err != nil || got != p {
		fault("process record for pid %d is not the table occupant", p.Pid)
	}
}
