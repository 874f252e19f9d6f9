package kernel

import (
	"github.com/danielg0/quintos/abi"
	"github.com/danielg0/quintos/log"
	"github.com/danielg0/quintos/memory"
	"github.com/pkg/errors"
)

// CreateOptions carries the optional parts of process creation. The zero
// value creates a user-tier process with no extra mappings.
type CreateOptions struct {
	// Tier picks the ready tier the process schedules on. Role-to-tier
	// mapping is the creator's call; the kernel never infers it.
	Tier Tier

	// Mappings are installed into the new address space after the code
	// image is loaded, typically device windows for driver processes.
	Mappings []memory.Mapping
}

// Create allocates a process id, builds an address space, loads the code
// image into it, installs any extra mappings and enqueues the new process
// READY on its tier. Every acquisition is rolled back if a later step
// fails: the error reaches the caller with the table and tiers exactly as
// they were before the call.
func (k *Kernel) Create(name string, image []byte, opts CreateOptions) (*Process, error) {
	pid, err := k.table.alloc()
	if err != nil {
		return nil, err
	}

	as := memory.NewAddressSpace()

	rollback := true
	defer func() {
		if rollback {
			as.Release()
			k.table.free(pid)
		}
	}()

	entry, err := k.loader.Load(as, image)
	if err != nil {
		return nil, err
	}

	for _, m := range opts.Mappings {
		if err := as.SetMapping(m.Virt, m.Phys, m.Size, m.Perms); err != nil {
			return nil, err
		}
	}

	p := k.table.proc(pid)
	p.Pid = pid
	p.Tier = opts.Tier
	p.state = Ready
	p.magic = procMagic
	p.Space = as
	p.Regs = abi.Regs{PC: entry}
	p.setName(name)

	rollback = false

	k.tiers[p.Tier].PushBack(p)

	log.L.Trace("process-create", "pid", pid, "name", p.Name(), "tier", p.Tier.String(), "entry", entry)
	k.Events.Notify(ProcessCreated)

	return p, nil
}

// Destroy releases everything p owns and returns its id to the free
// chain. It never fails: an invalid process reference is a fatal fault,
// not an error.
func (k *Kernel) Destroy(p *Process) {
	k.assertValid(p)

	if p == &k.idle {
		fault("destroying the idle process")
	}

	// RUNNING and DYING processes are queue-less by construction;
	// anything else is sitting in exactly one queue.
	switch p.state {
	case Running, Dying:
	case Blocked:
		k.blocked.Remove(p)
	default:
		k.tiers[p.Tier].Remove(p)
	}

	// Undelivered messages in p's mailbox belong to senders blocked on a
	// reply that can now never come; fail them instead of leaking them.
	for {
		msg, ok := p.mboxPop()
		if !ok {
			break
		}

		sender, err := k.table.lookup(msg.From)
		if err != nil || sender == p {
			continue
		}

		if sender.awaitReply && sender.state == Blocked {
			sender.awaitReply = false
			sender.Regs.A0 = abi.Err(abi.ESRCH)
			k.Unblock(sender)
		}
	}

	log.L.Trace("process-destroy", "pid", p.Pid, "name", p.Name())

	p.Space.Release()
	k.table.free(p.Pid)

	k.Events.Notify(ProcessDestroyed)
}

// Next is the sole state-transition point of the scheduler: it files prev
// according to its state, then selects the next process to run. The trap
// entry path calls it on every trap and resumes whatever it returns.
func (k *Kernel) Next(prev *Process) *Process {
	k.assertValid(prev)

	if prev == &k.idle {
		// Idle parks without ever joining a queue.
		prev.state = Ready
	} else {
		switch prev.state {
		case Running:
			// No time-slice expiry; keep the current assignment.
			return prev
		case Ready:
			k.tiers[prev.Tier].PushBack(prev)
		case Blocked:
			k.blocked.PushBack(prev)
		case Dying:
			k.Destroy(prev)
		default:
			fault("pid %d has invalid state %d", prev.Pid, prev.state)
		}
	}

	next := k.selectNext()

	if next.state != Ready {
		fault("selected pid %d in state %s, want ready", next.Pid, next.state)
	}

	next.state = Running

	log.L.Trace("sched-next", "pid", next.Pid, "name", next.Name())

	return next
}

// selectNext drains the tiers in strict priority order, falling back to
// idle when every tier is empty. Sustained load on a higher tier starves
// the tiers below it; that is the intended policy.
func (k *Kernel) selectNext() *Process {
	for t := numTiers - 1; t >= 0; t-- {
		if e := k.tiers[t].PopFront(); e != nil {
			return e.(*Process)
		}
	}

	return &k.idle
}

// Block marks the running process BLOCKED. The blocked-queue insert
// happens on the next pass through Next, like every other transition.
func (k *Kernel) Block(p *Process) {
	k.assertValid(p)

	if p == &k.idle {
		fault("blocking the idle process")
	}

	if p.state != Running {
		fault("blocking pid %d in state %s, want running", p.Pid, p.state)
	}

	p.state = Blocked
}

// Unblock moves a BLOCKED process out of the blocked queue and back onto
// the tail of its ready tier.
func (k *Kernel) Unblock(p *Process) {
	k.assertValid(p)

	if p.state != Blocked {
		fault("unblocking pid %d in state %s, want blocked", p.Pid, p.state)
	}

	k.blocked.Remove(p)
	p.state = Ready
	// A wake from anything other than a send cancels a pending Receive
	// park; the handler has to issue Receive again.
	p.recvWait = false
	k.tiers[p.Tier].PushBack(p)

	log.L.Trace("process-unblock", "pid", p.Pid, "name", p.Name())
}

var ErrNotFound = errors.New("process not found")

// UnblockPid scans the blocked queue for pid. Cost is linear in the number
// of blocked processes.
func (k *Kernel) UnblockPid(pid Pid) error {
	for it := k.blocked.Front(); it != nil; it = it.Next() {
		p := it.(*Process)
		if p.Pid == pid {
			k.Unblock(p)
			return nil
		}
	}

	return errors.Wrapf(ErrNotFound, "pid %d not blocked", pid)
}
