package loader

import (
	"testing"

	"github.com/danielg0/quintos/memory"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func testImage() *Image {
	return &Image{
		Entry: 0x1000,
		Segments: []Segment{
			{
				Vaddr: 0x1000,
				Perms: memory.PermRead | memory.PermExec | memory.PermUser,
				Data:  []byte{0x13, 0x00, 0x00, 0x00},
			},
			{
				Vaddr: 0x4000,
				Perms: memory.PermRead | memory.PermWrite | memory.PermUser,
				Data:  []byte{0xaa, 0xbb},
			},
		},
	}
}

func TestLoader(t *testing.T) {
	n := neko.Modern(t)

	n.It("round-trips an image through encode and parse", func(t *testing.T) {
		l := NewLoader(nil)

		img, err := l.Parse(Encode(testImage()))
		require.NoError(t, err)

		require.Equal(t, uint64(0x1000), img.Entry)
		require.Len(t, img.Segments, 2)
		require.Equal(t, []byte{0xaa, 0xbb}, img.Segments[1].Data)
	})

	n.It("maps segments into an address space and returns the entry", func(t *testing.T) {
		l := NewLoader(nil)
		as := memory.NewAddressSpace()

		entry, err := l.Load(as, Encode(testImage()))
		require.NoError(t, err)
		require.Equal(t, uint64(0x1000), entry)

		got := make([]byte, 4)
		require.NoError(t, as.ReadAt(got, 0x1000))
		require.Equal(t, []byte{0x13, 0x00, 0x00, 0x00}, got)

		reg, ok := as.FindRegion(0x4000)
		require.True(t, ok)
		require.Equal(t, memory.PermRead|memory.PermWrite|memory.PermUser, reg.Perms)
	})

	n.It("rejects a bad magic", func(t *testing.T) {
		l := NewLoader(nil)

		raw := Encode(testImage())
		raw[0] = 0xff

		_, err := l.Parse(raw)
		require.Equal(t, ErrBadImage, errors.Cause(err))
	})

	n.It("rejects a truncated image", func(t *testing.T) {
		l := NewLoader(nil)

		raw := Encode(testImage())

		_, err := l.Parse(raw[:len(raw)-3])
		require.Equal(t, ErrBadImage, errors.Cause(err))

		_, err = l.Parse(raw[:10])
		require.Equal(t, ErrBadImage, errors.Cause(err))
	})

	n.It("serves a repeated image from the cache", func(t *testing.T) {
		l := NewLoader(NewLoaderCache())

		raw := Encode(testImage())

		first, err := l.Parse(raw)
		require.NoError(t, err)

		second, err := l.Parse(raw)
		require.NoError(t, err)

		require.Same(t, first, second)
	})

	n.Meow()
}
