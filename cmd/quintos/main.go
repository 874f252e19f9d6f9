package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/danielg0/quintos/abi"
	"github.com/danielg0/quintos/kernel"
	"github.com/danielg0/quintos/loader"
	clog "github.com/danielg0/quintos/log"
	"github.com/danielg0/quintos/memory"
	"github.com/danielg0/quintos/pkg/waiter"
	"github.com/spf13/pflag"
)

var (
	fSteps = pflag.IntP("steps", "n", 16, "number of timer ticks to simulate")
	fDump  = pflag.BoolP("dump", "d", false, "dump kernel state after the run")
)

func main() {
	pflag.Parse()

	ld := loader.NewLoader(loader.NewLoaderCache())
	k := kernel.NewKernel(ld)

	k.Events.Register(&waiter.Event{
		Mask: kernel.ProcessCreated | kernel.ProcessDestroyed,
		Callback: func(e *waiter.Event) {
			clog.L.Info("process table changed")
		},
	})

	if paths := pflag.Args(); len(paths) > 0 {
		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				log.Fatal(err)
			}

			proc, err := k.Create(filepath.Base(path), data, kernel.CreateOptions{})
			if err != nil {
				log.Fatal(err)
			}

			clog.L.Info("created process", "pid", proc.Pid, "name", proc.Name())
		}
	} else {
		setupDemo(k)
	}

	cur := k.Idle()

	for i := 0; i < *fSteps; i++ {
		cause := abi.CauseTimer

		// The demo driver parks waiting for console requests instead
		// of monopolizing its tier.
		if cur.Name() == "uart" {
			cur.Regs.A7 = uint64(abi.SysReceive)
			cause = abi.CauseSyscall
		}

		cur = k.HandleTrap(cur, cause)
		fmt.Printf("tick %2d: pid=%d name=%s\n", i, cur.Pid, cur.Name())
	}

	if *fDump {
		k.DumpState(os.Stdout)
	}
}

// setupDemo builds a console driver plus two user processes out of
// synthesized boot images, the same shape a real boot would produce.
func setupDemo(k *kernel.Kernel) {
	uart, err := k.Create("uart", demoImage(0x1000), kernel.CreateOptions{
		Tier: kernel.TierDriver,
		Mappings: []memory.Mapping{
			{Virt: 0x4000_0000, Phys: 0x1000_0000, Size: memory.PageSize, Perms: memory.PermRead | memory.PermWrite},
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	k.RegisterHandler(abi.SysConsole, uart)

	for _, name := range []string{"init", "shell"} {
		if _, err := k.Create(name, demoImage(0x1000), kernel.CreateOptions{}); err != nil {
			log.Fatal(err)
		}
	}
}

func demoImage(entry uint64) []byte {
	return loader.Encode(&loader.Image{
		Entry: entry,
		Segments: []loader.Segment{
			{
				Vaddr: entry,
				Perms: memory.PermRead | memory.PermExec | memory.PermUser,
				// ecall; j .
				Data: []byte{0x73, 0x00, 0x00, 0x00, 0x6f, 0x00, 0x00, 0x00},
			},
		},
	})
}
