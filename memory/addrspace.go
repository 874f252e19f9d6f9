package memory

import (
	"github.com/pkg/errors"
)

const PageSize = 4096 // (4 KB)

// MaxSpaceSize caps the total mapped bytes of one address space.
const MaxSpaceSize = 64 << 20

// Perm is a page permission mask.
type Perm uint8

const (
	PermRead Perm = 1 << iota
	PermWrite
	PermExec
	// PermUser marks the mapping accessible from user privilege.
	PermUser
)

// Region is one contiguous virtual mapping. Anonymous regions own their
// backing bytes; physical regions record the device address they map and
// carry no backing.
type Region struct {
	Start, Size uint64
	Perms       Perm

	Phys     uint64
	physical bool

	backing []byte
}

func (reg *Region) Contains(x uint64) bool {
	if x < reg.Start {
		return false
	}

	if x >= reg.Start+reg.Size {
		return false
	}

	return true
}

func (reg *Region) overlaps(start, size uint64) bool {
	return start < reg.Start+reg.Size && reg.Start < start+size
}

// Physical reports whether the region maps device memory rather than
// kernel-allocated backing.
func (reg *Region) Physical() bool {
	return reg.physical
}

func pageRound(sz uint64) uint64 {
	if sz < PageSize {
		return PageSize
	}

	diff := sz % PageSize
	if diff == 0 {
		return sz
	}

	return sz + (PageSize - diff)
}

// Mapping describes one virtual to physical range a creator wants
// installed in a new process's address space.
type Mapping struct {
	Virt, Phys, Size uint64
	Perms            Perm
}

// AddressSpace is the paging collaborator's handle: a root table plus the
// set of regions mapped under it. Each address space is owned by exactly
// one process and freed only when that process is destroyed.
type AddressSpace struct {
	regions []*Region

	size     uint64
	released bool
}

func NewAddressSpace() *AddressSpace {
	return &AddressSpace{}
}

var (
	ErrOverlap   = errors.New("mapping overlaps an existing region")
	ErrNoSpace   = errors.New("address space exhausted")
	ErrBadAccess = errors.New("access outside any mapped region")
)

func (as *AddressSpace) FindRegion(addr uint64) (*Region, bool) {
	for _, reg := range as.regions {
		if reg.Contains(addr) {
			return reg, true
		}
	}

	return nil, false
}

func (as *AddressSpace) checkFit(start, size uint64) error {
	for _, reg := range as.regions {
		if reg.overlaps(start, size) {
			return errors.Wrapf(ErrOverlap, "error mapping start=%x, size=%x", start, size)
		}
	}

	if as.size+size > MaxSpaceSize {
		return errors.Wrapf(ErrNoSpace, "error mapping start=%x, size=%x", start, size)
	}

	return nil
}

// Map creates an anonymous region backed by zeroed memory.
func (as *AddressSpace) Map(start, size uint64, perms Perm) (*Region, error) {
	size = pageRound(size)

	if err := as.checkFit(start, size); err != nil {
		return nil, err
	}

	reg := &Region{
		Start:   start,
		Size:    size,
		Perms:   perms,
		backing: make([]byte, size),
	}

	as.regions = append(as.regions, reg)
	as.size += size

	return reg, nil
}

// SetMapping installs a virtual to physical range, used for handing device
// windows to driver processes. No backing is allocated.
func (as *AddressSpace) SetMapping(virt, phys, size uint64, perms Perm) error {
	size = pageRound(size)

	if err := as.checkFit(virt, size); err != nil {
		return err
	}

	as.regions = append(as.regions, &Region{
		Start:    virt,
		Size:     size,
		Perms:    perms,
		Phys:     phys,
		physical: true,
	})
	as.size += size

	return nil
}

// WriteAt copies p into the anonymous region containing addr. Writes may
// not straddle regions and may not target physical mappings.
func (as *AddressSpace) WriteAt(p []byte, addr uint64) error {
	reg, ok := as.FindRegion(addr)
	if !ok || reg.physical {
		return errors.Wrapf(ErrBadAccess, "error writing addr=%x, size=%x", addr, len(p))
	}

	offset := addr - reg.Start
	if offset+uint64(len(p)) > reg.Size {
		return errors.Wrapf(ErrBadAccess, "error writing addr=%x, size=%x", addr, len(p))
	}

	copy(reg.backing[offset:], p)
	return nil
}

// ReadAt copies len(p) bytes out of the anonymous region containing addr.
func (as *AddressSpace) ReadAt(p []byte, addr uint64) error {
	reg, ok := as.FindRegion(addr)
	if !ok || reg.physical {
		return errors.Wrapf(ErrBadAccess, "error reading addr=%x, size=%x", addr, len(p))
	}

	offset := addr - reg.Start
	if offset+uint64(len(p)) > reg.Size {
		return errors.Wrapf(ErrBadAccess, "error reading addr=%x, size=%x", addr, len(p))
	}

	copy(p, reg.backing[offset:])
	return nil
}

// Size returns the total mapped bytes.
func (as *AddressSpace) Size() uint64 {
	return as.size
}

// Release drops every region and the backing they own. The address space
// must not be used afterwards.
func (as *AddressSpace) Release() {
	as.regions = nil
	as.size = 0
	as.released = true
}

// Released reports whether Release has run.
func (as *AddressSpace) Released() bool {
	return as.released
}
