package kernel

import (
	"github.com/danielg0/quintos/abi"
	"github.com/danielg0/quintos/log"
	"github.com/pkg/errors"
)

var (
	ErrUnhandledSyscall = errors.New("no handler registered for syscall")
	ErrMailboxFull      = errors.New("handler mailbox full")
)

// MaxMessageBytes caps the copied payload of one IPC message.
const MaxMessageBytes = 64

// Message is the envelope delivered to a syscall handler. It is copied
// into the handler's mailbox at send time and copied out at receive time;
// caller and handler never alias each other's memory.
type Message struct {
	From  Pid
	Sysno abi.Syscall
	Arg   uint64

	Len  uint16
	Data [MaxMessageBytes]byte
}

// handlerEntry is one dispatch table slot. Handlers are named by pid so a
// dead handler degrades to "unhandled" instead of dangling.
type handlerEntry struct {
	pid Pid
	ok  bool
}

// RegisterHandler installs p as the handler process for sysno.
// Re-registration overwrites silently. This table is the kernel's sole
// extensibility point: device and service behavior lives entirely in the
// processes registered here.
func (k *Kernel) RegisterHandler(sysno abi.Syscall, p *Process) {
	if sysno >= abi.MaxSyscall {
		fault("registering handler for invalid syscall %d", sysno)
	}

	k.assertValid(p)

	if p == &k.idle {
		fault("registering the idle process as a syscall handler")
	}

	k.handlers[sysno] = handlerEntry{pid: p.Pid, ok: true}

	log.L.Trace("dispatch-register", "syscall", sysno.String(), "pid", p.Pid)
}

// Handler returns the process currently registered for sysno.
func (k *Kernel) Handler(sysno abi.Syscall) (*Process, error) {
	if sysno >= abi.MaxSyscall {
		return nil, errors.Wrapf(ErrUnhandledSyscall, "invalid syscall %d", sysno)
	}

	ent := k.handlers[sysno]
	if !ent.ok {
		return nil, errors.Wrapf(ErrUnhandledSyscall, "syscall %s", sysno)
	}

	h, err := k.table.lookup(ent.pid)
	if err != nil {
		return nil, errors.Wrapf(ErrUnhandledSyscall, "syscall %s handler died", sysno)
	}

	return h, nil
}

// Send routes caller's syscall to its registered handler as a message.
// The message is copied into the handler's mailbox, the caller blocks
// until the handler replies, and a parked handler is made runnable. On
// any error no message is delivered and no process changes state.
func (k *Kernel) Send(caller *Process, sysno abi.Syscall, msg Message) error {
	k.assertValid(caller)

	if caller == &k.idle {
		fault("idle process sending a message")
	}

	h, err := k.Handler(sysno)
	if err != nil {
		return err
	}

	if h.mboxFull() {
		return errors.Wrapf(ErrMailboxFull, "syscall %s pid %d", sysno, h.Pid)
	}

	msg.From = caller.Pid
	msg.Sysno = sysno
	h.mboxPush(msg)

	caller.awaitReply = true
	k.Block(caller)

	log.L.Trace("ipc-send", "from", caller.Pid, "to", h.Pid, "syscall", sysno.String(), "arg", msg.Arg)

	if h.recvWait {
		// Complete the parked Receive: deliver into the handler's
		// saved registers before it is made runnable.
		h.recvWait = false

		pending, _ := h.mboxPop()
		h.Regs.A0 = pending.Arg
		h.Regs.A1 = uint64(pending.From)
		h.Regs.A2 = uint64(pending.Sysno)

		k.Unblock(h)
	}

	return nil
}

// Receive pops the next pending message for the handler h. With nothing
// pending, h parks until a send arrives; the false return tells the trap
// path not to deliver anything into h's registers yet.
func (k *Kernel) Receive(h *Process) (Message, bool) {
	k.assertValid(h)

	if msg, ok := h.mboxPop(); ok {
		log.L.Trace("ipc-receive", "pid", h.Pid, "from", msg.From, "syscall", msg.Sysno.String())
		return msg, true
	}

	h.recvWait = true
	k.Block(h)

	return Message{}, false
}

// Reply completes the rendezvous: ret is copied into the blocked caller's
// result register and the caller goes back to READY (via its ready tier).
func (k *Kernel) Reply(h *Process, to Pid, ret uint64) error {
	k.assertValid(h)

	caller, err := k.table.lookup(to)
	if err != nil {
		return errors.Wrapf(ErrNotFound, "reply to pid %d", to)
	}

	if !caller.awaitReply || caller.state != Blocked {
		return errors.Wrapf(ErrNotFound, "pid %d is not awaiting a reply", to)
	}

	caller.awaitReply = false
	caller.Regs.A0 = ret

	log.L.Trace("ipc-reply", "from", h.Pid, "to", to, "ret", ret)

	k.Unblock(caller)

	return nil
}
