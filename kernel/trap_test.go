package kernel

import (
	"testing"

	"github.com/danielg0/quintos/abi"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func TestHandleTrap(t *testing.T) {
	n := neko.Modern(t)

	n.It("rotates through a tier on timer ticks", func(t *testing.T) {
		k := testKernel()

		a, err := k.Create("a", testImage(), CreateOptions{})
		require.NoError(t, err)
		b, err := k.Create("b", testImage(), CreateOptions{})
		require.NoError(t, err)

		cur := k.HandleTrap(k.Idle(), abi.CauseTimer)
		require.Same(t, a, cur)

		cur = k.HandleTrap(cur, abi.CauseTimer)
		require.Same(t, b, cur)

		cur = k.HandleTrap(cur, abi.CauseTimer)
		require.Same(t, a, cur)
	})

	n.It("destroys a process that exits", func(t *testing.T) {
		k := testKernel()

		a, err := k.Create("a", testImage(), CreateOptions{})
		require.NoError(t, err)

		cur := k.HandleTrap(k.Idle(), abi.CauseTimer)
		require.Same(t, a, cur)

		pid := cur.Pid
		cur.Regs.A7 = uint64(abi.SysExit)

		got := k.HandleTrap(cur, abi.CauseSyscall)
		require.Same(t, k.Idle(), got)

		_, err = k.Lookup(pid)
		require.Equal(t, ErrNoProcess, errors.Cause(err))
	})

	n.It("kills a faulting process", func(t *testing.T) {
		k := testKernel()

		a, err := k.Create("a", testImage(), CreateOptions{})
		require.NoError(t, err)

		cur := k.HandleTrap(k.Idle(), abi.CauseTimer)
		require.Same(t, a, cur)

		got := k.HandleTrap(cur, abi.CauseFault)
		require.Same(t, k.Idle(), got)

		_, err = k.Lookup(a.Pid)
		require.Equal(t, ErrNoProcess, errors.Cause(err))
	})

	n.It("yield moves the caller to the back of its tier", func(t *testing.T) {
		k := testKernel()

		a, err := k.Create("a", testImage(), CreateOptions{})
		require.NoError(t, err)
		b, err := k.Create("b", testImage(), CreateOptions{})
		require.NoError(t, err)

		cur := k.HandleTrap(k.Idle(), abi.CauseTimer)
		require.Same(t, a, cur)

		cur.Regs.A7 = uint64(abi.SysYield)
		got := k.HandleTrap(cur, abi.CauseSyscall)
		require.Same(t, b, got)
		require.Equal(t, []Pid{a.Pid}, tierPids(k, TierUser))
	})

	n.It("returns ENOSYS for an unhandled syscall and keeps running the caller", func(t *testing.T) {
		k := testKernel()

		a, err := k.Create("a", testImage(), CreateOptions{})
		require.NoError(t, err)

		cur := k.HandleTrap(k.Idle(), abi.CauseTimer)
		require.Same(t, a, cur)

		cur.Regs.A7 = uint64(abi.SysBlockRead)
		cur.Regs.A0 = 9

		got := k.HandleTrap(cur, abi.CauseSyscall)
		require.Same(t, a, got)
		require.Equal(t, Running, got.State())
		require.Equal(t, abi.Err(abi.ENOSYS), got.Regs.A0)
		require.Empty(t, blockedPids(k))
	})

	n.It("runs a full rendezvous between a user process and a driver", func(t *testing.T) {
		k := testKernel()

		h, err := k.Create("uart", testImage(), CreateOptions{Tier: TierDriver})
		require.NoError(t, err)
		u, err := k.Create("init", testImage(), CreateOptions{})
		require.NoError(t, err)

		k.RegisterHandler(abi.SysConsole, h)

		// Driver runs first and parks waiting for requests.
		cur := k.HandleTrap(k.Idle(), abi.CauseTimer)
		require.Same(t, h, cur)

		cur.Regs.A7 = uint64(abi.SysReceive)
		cur = k.HandleTrap(cur, abi.CauseSyscall)
		require.Same(t, u, cur)

		// The user process issues a console syscall.
		cur.Regs.A7 = uint64(abi.SysConsole)
		cur.Regs.A0 = 42

		cur = k.HandleTrap(cur, abi.CauseSyscall)
		require.Same(t, h, cur)
		require.Equal(t, Blocked, u.State())

		// The parked receive completed on wake.
		require.Equal(t, uint64(42), cur.Regs.A0)
		require.Equal(t, uint64(u.Pid), cur.Regs.A1)
		require.Equal(t, uint64(abi.SysConsole), cur.Regs.A2)

		// The driver replies; the reply lands in the caller's A0.
		cur.Regs.A7 = uint64(abi.SysReply)
		cur.Regs.A0 = uint64(u.Pid)
		cur.Regs.A1 = 0x99

		cur = k.HandleTrap(cur, abi.CauseSyscall)
		require.Same(t, h, cur)

		// The driver parks again; the user process resumes with the
		// reply in its result register.
		cur.Regs.A7 = uint64(abi.SysReceive)
		cur = k.HandleTrap(cur, abi.CauseSyscall)
		require.Same(t, u, cur)
		require.Equal(t, uint64(0x99), cur.Regs.A0)
	})

	n.It("halts when the idle process faults", func(t *testing.T) {
		k := testKernel()

		require.Panics(t, func() {
			k.HandleTrap(k.Idle(), abi.CauseFault)
		})
	})

	n.Meow()
}
