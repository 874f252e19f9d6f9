package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"io"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/danielg0/quintos/log"
	"github.com/danielg0/quintos/memory"
	hclog "github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// Boot image layout: a header followed by the segment table, followed by the
// segment payloads in table order.
//
//	magic   uint32  "QNT\x01"
//	entry   uint64
//	nseg    uint32
//	per segment: vaddr uint64, size uint32, perms uint8
const Magic = 0x514e5401

const maxSegments = 32

var ErrBadImage = errors.New("malformed boot image")

// Segment is one loadable range of a parsed image.
type Segment struct {
	Vaddr uint64
	Perms memory.Perm
	Data  []byte
}

// Image is the parsed, address-space-independent form of a boot image.
// It is what the cache holds; mapping into an address space is always
// done per process.
type Image struct {
	Entry    uint64
	Segments []Segment
}

type LoaderCache struct {
	mu sync.RWMutex

	cache *lru.ARCCache
}

func NewLoaderCache() *LoaderCache {
	cache, err := lru.NewARC(100)
	if err != nil {
		panic(err)
	}

	return &LoaderCache{cache: cache}
}

func (l *LoaderCache) Lookup(key string) (*Image, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	val, ok := l.cache.Get(key)
	if !ok {
		return nil, false
	}

	return val.(*Image), true
}

func (l *LoaderCache) Set(key string, img *Image) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache.Add(key, img)
}

func NewLoader(cache *LoaderCache) *Loader {
	return &Loader{
		L:     hclog.L(),
		cache: cache,
	}
}

type Loader struct {
	L     hclog.Logger
	cache *LoaderCache
}

// Load maps the boot image into as and returns the entry program counter.
func (l *Loader) Load(as *memory.AddressSpace, image []byte) (uint64, error) {
	img, err := l.Parse(image)
	if err != nil {
		return 0, err
	}

	for _, seg := range img.Segments {
		reg, err := as.Map(seg.Vaddr, uint64(len(seg.Data)), seg.Perms)
		if err != nil {
			return 0, err
		}

		if err := as.WriteAt(seg.Data, reg.Start); err != nil {
			return 0, err
		}
	}

	return img.Entry, nil
}

// Parse decodes and validates a boot image, consulting the cache first.
func (l *Loader) Parse(image []byte) (*Image, error) {
	var cacheKey string

	if l.cache != nil {
		h, err := blake2b.New256(nil)
		if err != nil {
			return nil, err
		}

		h.Write(image)

		cacheKey = base64.URLEncoding.EncodeToString(h.Sum(nil))

		log.L.Debug("looking for cached image", "key", cacheKey)

		if img, ok := l.cache.Lookup(cacheKey); ok {
			return img, nil
		}
	}

	img, err := parseImage(image)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		log.L.Debug("cached image", "key", cacheKey)
		l.cache.Set(cacheKey, img)
	}

	return img, nil
}

type segHeader struct {
	Vaddr uint64
	Size  uint32
	Perms uint8
}

func parseImage(image []byte) (*Image, error) {
	r := bytes.NewReader(image)

	var (
		magic uint32
		entry uint64
		nseg  uint32
	)

	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, errors.Wrapf(ErrBadImage, "truncated header")
	}

	if magic != Magic {
		return nil, errors.Wrapf(ErrBadImage, "bad magic %x", magic)
	}

	if err := binary.Read(r, binary.LittleEndian, &entry); err != nil {
		return nil, errors.Wrapf(ErrBadImage, "truncated header")
	}

	if err := binary.Read(r, binary.LittleEndian, &nseg); err != nil {
		return nil, errors.Wrapf(ErrBadImage, "truncated header")
	}

	if nseg == 0 || nseg > maxSegments {
		return nil, errors.Wrapf(ErrBadImage, "bad segment count %d", nseg)
	}

	headers := make([]segHeader, nseg)
	for i := range headers {
		if err := binary.Read(r, binary.LittleEndian, &headers[i]); err != nil {
			return nil, errors.Wrapf(ErrBadImage, "truncated segment table")
		}
	}

	img := &Image{Entry: entry}

	for _, hdr := range headers {
		if hdr.Size == 0 {
			return nil, errors.Wrapf(ErrBadImage, "empty segment at %x", hdr.Vaddr)
		}

		data := make([]byte, hdr.Size)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, errors.Wrapf(ErrBadImage, "truncated segment at %x", hdr.Vaddr)
		}

		img.Segments = append(img.Segments, Segment{
			Vaddr: hdr.Vaddr,
			Perms: memory.Perm(hdr.Perms),
			Data:  data,
		})
	}

	return img, nil
}

// Encode renders an Image back into wire form. The simulator uses it to
// synthesize boot images for processes it creates.
func Encode(img *Image) []byte {
	var buf bytes.Buffer

	binary.Write(&buf, binary.LittleEndian, uint32(Magic))
	binary.Write(&buf, binary.LittleEndian, img.Entry)
	binary.Write(&buf, binary.LittleEndian, uint32(len(img.Segments)))

	for _, seg := range img.Segments {
		binary.Write(&buf, binary.LittleEndian, segHeader{
			Vaddr: seg.Vaddr,
			Size:  uint32(len(seg.Data)),
			Perms: uint8(seg.Perms),
		})
	}

	for _, seg := range img.Segments {
		buf.Write(seg.Data)
	}

	return buf.Bytes()
}
