package kernel

import (
	"github.com/danielg0/quintos/abi"
	"github.com/danielg0/quintos/log"
	"github.com/pkg/errors"
)

// HandleTrap is the kernel's entry point from the trap/interrupt assembly:
// cur is the process that was executing, cause is why it stopped. The
// return value is the process whose saved context the entry path must
// resume. All scheduling policy lives in Next; this file only translates
// trap causes and the syscall ABI into core operations.
func (k *Kernel) HandleTrap(cur *Process, cause abi.TrapCause) *Process {
	k.assertValid(cur)

	log.L.Trace("trap", "pid", cur.Pid, "cause", cause.String())

	switch cause {
	case abi.CauseTimer:
		if cur.state == Running {
			cur.state = Ready
		}
	case abi.CauseFault:
		if cur == &k.idle {
			fault("idle process faulted")
		}

		log.L.Warn("process-fault", "pid", cur.Pid, "name", cur.Name(), "pc", cur.Regs.PC)
		cur.state = Dying
	case abi.CauseSyscall:
		k.syscall(cur)
	}

	return k.Next(cur)
}

// syscall decodes the trapped syscall per the platform ABI: the number in
// A7, one argument word in A0, the result back in A0. Everything that is
// not a scheduling primitive is forwarded through the dispatch table.
func (k *Kernel) syscall(cur *Process) {
	sysno := abi.Syscall(cur.Regs.A7)
	arg := cur.Regs.A0

	log.L.Trace("syscall", "pid", cur.Pid, "syscall", sysno.String(), "arg", arg)

	switch sysno {
	case abi.SysYield:
		cur.state = Ready
		cur.Regs.A0 = 0

	case abi.SysExit:
		cur.state = Dying

	case abi.SysReceive:
		msg, ok := k.Receive(cur)
		if !ok {
			// Parked; delivery happens when a send arrives and
			// the handler is selected again.
			return
		}
		cur.Regs.A0 = msg.Arg
		cur.Regs.A1 = uint64(msg.From)
		cur.Regs.A2 = uint64(msg.Sysno)

	case abi.SysReply:
		err := k.Reply(cur, Pid(int32(cur.Regs.A0)), cur.Regs.A1)
		if err != nil {
			cur.Regs.A0 = abi.Err(abi.ESRCH)
			return
		}
		cur.Regs.A0 = 0

	default:
		err := k.Send(cur, sysno, Message{Arg: arg})
		switch errors.Cause(err) {
		case nil:
			// Caller is blocked until the handler replies; the
			// reply lands in its saved A0.
		case ErrUnhandledSyscall:
			cur.Regs.A0 = abi.Err(abi.ENOSYS)
		case ErrMailboxFull:
			cur.Regs.A0 = abi.Err(abi.EAGAIN)
		}
	}
}
