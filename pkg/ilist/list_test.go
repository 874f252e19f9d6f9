package ilist

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

type testEntry struct {
	Entry

	value int
}

func values(l *List) []int {
	var out []int
	for it := l.Front(); it != nil; it = it.Next() {
		out = append(out, it.(*testEntry).value)
	}
	return out
}

func TestList(t *testing.T) {
	n := neko.Modern(t)

	n.It("pushes to the back in order", func(t *testing.T) {
		var l List

		l.PushBack(&testEntry{value: 1})
		l.PushBack(&testEntry{value: 2})
		l.PushBack(&testEntry{value: 3})

		require.Equal(t, []int{1, 2, 3}, values(&l))
		require.Equal(t, 3, l.Len())
	})

	n.It("pops entries from the front in FIFO order", func(t *testing.T) {
		var l List

		a := &testEntry{value: 1}
		b := &testEntry{value: 2}

		l.PushBack(a)
		l.PushBack(b)

		require.Equal(t, a, l.PopFront())
		require.Equal(t, b, l.PopFront())
		require.Nil(t, l.PopFront())
		require.True(t, l.Empty())
	})

	n.It("removes an entry from the middle", func(t *testing.T) {
		var l List

		a := &testEntry{value: 1}
		b := &testEntry{value: 2}
		c := &testEntry{value: 3}

		l.PushBack(a)
		l.PushBack(b)
		l.PushBack(c)

		l.Remove(b)

		require.Equal(t, []int{1, 3}, values(&l))
	})

	n.It("removes the only entry, leaving an empty list", func(t *testing.T) {
		var l List

		a := &testEntry{value: 1}
		l.PushBack(a)
		l.Remove(a)

		require.True(t, l.Empty())
		require.Nil(t, l.Front())
		require.Nil(t, l.Back())
	})

	n.It("clears link fields on removal so entries can be reinserted", func(t *testing.T) {
		var l, m List

		a := &testEntry{value: 1}
		l.PushBack(a)
		require.Equal(t, a, l.PopFront())

		m.PushBack(a)
		require.Equal(t, []int{1}, values(&m))
	})

	n.Meow()
}
