package kernel

import (
	"io"

	"github.com/danielg0/quintos/abi"
	"github.com/davecgh/go-spew/spew"
)

type procSummary struct {
	Pid   Pid
	Name  string
	State string
	Tier  string
}

type stateDump struct {
	Alive    []procSummary
	Tiers    map[string][]Pid
	Blocked  []Pid
	Handlers map[string]Pid
}

// DumpState writes a rendering of the whole scheduler state, for debugging
// the simulator and inspecting wedged kernels.
func (k *Kernel) DumpState(w io.Writer) {
	dump := stateDump{
		Tiers:    make(map[string][]Pid),
		Handlers: make(map[string]Pid),
	}

	for id := Pid(0); int(id) < MaxProcs; id++ {
		p, err := k.table.lookup(id)
		if err != nil {
			continue
		}

		dump.Alive = append(dump.Alive, procSummary{
			Pid:   p.Pid,
			Name:  p.Name(),
			State: p.state.String(),
			Tier:  p.Tier.String(),
		})
	}

	for t := numTiers - 1; t >= 0; t-- {
		var pids []Pid
		for it := k.tiers[t].Front(); it != nil; it = it.Next() {
			pids = append(pids, it.(*Process).Pid)
		}
		dump.Tiers[t.String()] = pids
	}

	for it := k.blocked.Front(); it != nil; it = it.Next() {
		dump.Blocked = append(dump.Blocked, it.(*Process).Pid)
	}

	for sysno := abi.Syscall(0); sysno < abi.MaxSyscall; sysno++ {
		if ent := k.handlers[sysno]; ent.ok {
			dump.Handlers[sysno.String()] = ent.pid
		}
	}

	spew.Fdump(w, dump)
}
