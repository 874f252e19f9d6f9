package kernel

import "fmt"

// Fault is the panic payload raised when kernel state fails a consistency
// check: a corrupted process record, a free-chain entry aliasing a live
// slot, a non-READY process coming off a ready queue. These conditions mean
// kernel memory is already wrong, so they halt the kernel rather than
// joining the recoverable error taxonomy.
type Fault struct {
	Reason string
}

func (f Fault) String() string {
	return "kernel fault: " + f.Reason
}

func fault(format string, args ...interface{}) {
	panic(Fault{Reason: fmt.Sprintf(format, args...)})
}
