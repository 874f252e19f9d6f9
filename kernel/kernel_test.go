package kernel

import (
	"github.com/danielg0/quintos/loader"
	"github.com/danielg0/quintos/memory"
)

func testKernel() *Kernel {
	return NewKernel(loader.NewLoader(nil))
}

func testImage() []byte {
	return loader.Encode(&loader.Image{
		Entry: 0x1000,
		Segments: []loader.Segment{
			{
				Vaddr: 0x1000,
				Perms: memory.PermRead | memory.PermExec | memory.PermUser,
				Data:  []byte{0x73, 0x00, 0x00, 0x00},
			},
		},
	})
}

func tierPids(k *Kernel, t Tier) []Pid {
	var pids []Pid
	for it := k.tiers[t].Front(); it != nil; it = it.Next() {
		pids = append(pids, it.(*Process).Pid)
	}
	return pids
}

func blockedPids(k *Kernel) []Pid {
	var pids []Pid
	for it := k.blocked.Front(); it != nil; it = it.Next() {
		pids = append(pids, it.(*Process).Pid)
	}
	return pids
}
