package kernel

import (
	"bytes"

	"github.com/danielg0/quintos/abi"
	"github.com/danielg0/quintos/memory"
	"github.com/danielg0/quintos/pkg/ilist"
)

// Pid is a process identifier, dense and unique while the process is alive.
type Pid int32

// IdlePid is the pid of the permanent idle process, which lives outside the
// process table.
const IdlePid Pid = -1

type State int

const (
	Ready State = iota
	Running
	Blocked
	Dying
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Dying:
		return "dying"
	default:
		return "invalid"
	}
}

// Tier is a ready-queue priority class. Higher values run first; the zero
// value is the user tier, which is where created processes land unless the
// creator asks otherwise.
type Tier int

const (
	TierUser Tier = iota
	TierServer
	TierDriver

	numTiers
)

func (t Tier) String() string {
	switch t {
	case TierDriver:
		return "driver"
	case TierServer:
		return "server"
	case TierUser:
		return "user"
	default:
		return "invalid"
	}
}

// NameLen is the capacity of a process's name field. Longer names are
// truncated on creation.
const NameLen = 16

// procMagic tags every live process record. A reachable record whose tag
// differs has been corrupted, which is fatal.
const procMagic = 0x7175696e

const mailboxSlots = 8

// Process is one live process record. Records live in the process table's
// slot array (the idle process being the one exception), so a *Process is
// stable for the process's whole life. The embedded ilist.Entry puts the
// process in at most one queue at a time: its ready tier while READY and
// enqueued, the blocked queue while BLOCKED, no queue while RUNNING, DYING
// or mid-transition.
type Process struct {
	ilist.Entry

	Pid  Pid
	Tier Tier

	name  [NameLen]byte
	state State
	magic uint32

	// Space is owned exclusively by this process and released only at
	// destruction.
	Space *memory.AddressSpace

	// Regs is the saved trap frame, restored when the process is next
	// selected to run.
	Regs abi.Regs

	// IPC mailbox: a fixed ring of copied messages pending for this
	// process when it is a registered syscall handler.
	mbox  [mailboxSlots]Message
	mhead uint32
	mtail uint32

	// recvWait marks a handler parked in Receive; awaitReply marks a
	// sender blocked until the handler replies.
	recvWait   bool
	awaitReply bool
}

func (p *Process) Name() string {
	end := bytes.IndexByte(p.name[:], 0)
	if end < 0 {
		end = len(p.name)
	}
	return string(p.name[:end])
}

func (p *Process) setName(name string) {
	p.name = [NameLen]byte{}
	copy(p.name[:], name)
}

func (p *Process) State() State {
	return p.state
}

func (p *Process) mboxFull() bool {
	return p.mhead-p.mtail >= mailboxSlots
}

func (p *Process) mboxPush(msg Message) {
	p.mbox[p.mhead%mailboxSlots] = msg
	p.mhead++
}

func (p *Process) mboxPop() (Message, bool) {
	if p.mtail == p.mhead {
		return Message{}, false
	}

	msg := p.mbox[p.mtail%mailboxSlots]
	p.mtail++
	return msg, true
}
