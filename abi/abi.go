// Package abi defines the machine-facing contract between the kernel and
// user processes on RV64: trap causes, the saved register file, syscall
// numbering and errno-style result codes. The trap entry/exit assembly and
// the user-side syscall stubs are written against these definitions.
package abi

// TrapCause identifies why control entered the kernel.
type TrapCause int

const (
	CauseTimer TrapCause = iota
	CauseSyscall
	CauseFault
)

func (c TrapCause) String() string {
	switch c {
	case CauseTimer:
		return "timer"
	case CauseSyscall:
		return "syscall"
	case CauseFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Regs is the portion of the trap frame the kernel reads and writes. The
// syscall number travels in A7 and the single argument word in A0, which
// also carries the result back; everything the platform convention marks
// caller-saved is trashed across a trap.
type Regs struct {
	PC uint64

	A0, A1, A2, A3, A4, A5, A6, A7 uint64
}

// Syscall is the closed set of syscall identifiers. The dispatch table is
// sized by MaxSyscall; identifiers outside [0, MaxSyscall) are invalid.
type Syscall uint32

const (
	SysYield Syscall = iota
	SysExit
	SysReceive
	SysReply

	// Device/service syscalls, served entirely by registered handler
	// processes.
	SysConsole
	SysBlockRead
	SysBlockWrite
	SysClock

	MaxSyscall
)

var syscallNames = [MaxSyscall]string{
	SysYield:      "yield",
	SysExit:       "exit",
	SysReceive:    "receive",
	SysReply:      "reply",
	SysConsole:    "console",
	SysBlockRead:  "block-read",
	SysBlockWrite: "block-write",
	SysClock:      "clock",
}

func (s Syscall) String() string {
	if s < MaxSyscall {
		return syscallNames[s]
	}
	return "invalid"
}

// Negative errno values returned to user code in A0.
const (
	ENOSYS = 38
	ESRCH  = 3
	EAGAIN = 11
)

// Err converts an errno constant to the value placed in A0.
func Err(errno int) uint64 {
	return uint64(-int64(errno))
}
