package waiter

import (
	"github.com/danielg0/quintos/log"
	"github.com/danielg0/quintos/pkg/ilist"
)

type EventType uint64

// Waiter fans an event mask out to registered listeners. The kernel runs as
// a single logical flow, so registration and notification are unsynchronized.
type Waiter struct {
	count   int
	waiters ilist.List
}

type Event struct {
	ilist.Entry

	Mask     EventType
	Context  interface{}
	Callback func(e *Event)
}

func (w *Waiter) Register(e *Event) {
	w.count++

	w.waiters.PushBack(e)
}

func triggerChan(e *Event) {
	c := e.Context.(chan struct{})

	select {
	case c <- struct{}{}:
	default:
	}
}

func (w *Waiter) RegisterChannel(mask EventType, c chan struct{}) *Event {
	e := &Event{
		Callback: triggerChan,
		Context:  c,
		Mask:     mask,
	}

	w.Register(e)

	return e
}

func (w *Waiter) Unregister(e *Event) {
	w.count--

	w.waiters.Remove(e)
}

func (w *Waiter) Notify(mask EventType) {
	log.L.Trace("waiters-notify", "count", w.count)

	for it := w.waiters.Front(); it != nil; it = it.Next() {
		e := it.(*Event)
		if mask&e.Mask != 0 {
			e.Callback(e)
		}
	}
}
