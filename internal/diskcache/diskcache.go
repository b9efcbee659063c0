// Package diskcache persists decoded texture bitmaps across sessions, keyed by content id.
//
// Each entry is one file:
//
//	magic(2) | version(1) | flags(1) | uncompressedSize(4, LE) | contentID(16) | deflate(payload)
package diskcache

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no entry exists for an id.
	ErrNotFound = errors.New("diskcache: not found")
	// ErrCorrupt is returned when an entry fails validation. The file is removed.
	ErrCorrupt = errors.New("diskcache: corrupt entry")
)

var magic = [2]byte{'G', 'D'}

const (
	version    = 1
	headerSize = 2 + 1 + 1 + 4 + 16
	// maxPayload guards against absurd sizes in a damaged header.
	maxPayload = 64 << 20
)

// Flag bits recorded with each entry.
const (
	FlagHasAlpha  byte = 1
	FlagFullAlpha byte = 2
	FlagIsMask    byte = 4
)

// Cache is a directory of decoded-image records. It is safe for concurrent use as long
// as two goroutines do not write the same id at once; the streaming pipeline guarantees
// that by coalescing requests per id.
type Cache struct {
	dir string
}

// New opens (creating if needed) a cache rooted at dir.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("diskcache: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) path(id uuid.UUID) string {
	s := id.String()
	return filepath.Join(c.dir, s[:2], s+".dimg")
}

// SaveDecodedImage stores payload and its alpha flags under id, replacing any entry.
func (c *Cache) SaveDecodedImage(payload []byte, id uuid.UUID, flags byte) error {
	if len(payload) > maxPayload {
		return fmt.Errorf("diskcache: payload of %d bytes too large", len(payload))
	}
	var buf bytes.Buffer
	buf.Grow(headerSize + len(payload)/2)
	buf.Write(magic[:])
	buf.WriteByte(version)
	buf.WriteByte(flags)
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(payload)))
	buf.Write(size[:])
	buf.Write(id[:])

	fw, err := flate.NewWriter(&buf, flate.BestSpeed)
	if err != nil {
		return fmt.Errorf("diskcache: %w", err)
	}
	if _, err := fw.Write(payload); err != nil {
		return fmt.Errorf("diskcache: compress: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("diskcache: compress: %w", err)
	}

	path := c.path(id)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("diskcache: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("diskcache: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("diskcache: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("diskcache: write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("diskcache: %w", err)
	}
	return nil
}

// LoadDecodedImage returns the payload and flags stored for id.
func (c *Cache) LoadDecodedImage(id uuid.UUID) ([]byte, byte, error) {
	path := c.path(id)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("diskcache: %w", err)
	}

	payload, flags, err := parse(data, id)
	if err != nil {
		os.Remove(path)
		return nil, 0, err
	}
	return payload, flags, nil
}

func parse(data []byte, id uuid.UUID) ([]byte, byte, error) {
	if len(data) < headerSize {
		return nil, 0, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	if data[0] != magic[0] || data[1] != magic[1] {
		return nil, 0, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if data[2] != version {
		return nil, 0, fmt.Errorf("%w: version %d", ErrCorrupt, data[2])
	}
	flags := data[3]
	size := binary.LittleEndian.Uint32(data[4:8])
	if size > maxPayload {
		return nil, 0, fmt.Errorf("%w: size %d", ErrCorrupt, size)
	}
	if !bytes.Equal(data[8:24], id[:]) {
		return nil, 0, fmt.Errorf("%w: id mismatch", ErrCorrupt)
	}

	fr := flate.NewReader(bytes.NewReader(data[headerSize:]))
	defer fr.Close()
	payload := make([]byte, size)
	if _, err := io.ReadFull(fr, payload); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return payload, flags, nil
}

// Remove deletes the entry for id, if any.
func (c *Cache) Remove(id uuid.UUID) error {
	err := os.Remove(c.path(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("diskcache: %w", err)
	}
	return nil
}

// SaveImage stores an RGBA bitmap. The payload is width(4) | height(4) | pixels.
func (c *Cache) SaveImage(id uuid.UUID, img *image.RGBA, flags byte) error {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	payload := make([]byte, 8, 8+w*h*4)
	binary.LittleEndian.PutUint32(payload[0:4], uint32(w))
	binary.LittleEndian.PutUint32(payload[4:8], uint32(h))
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		payload = append(payload, img.Pix[img.PixOffset(img.Rect.Min.X, y):img.PixOffset(img.Rect.Max.X, y)]...)
	}
	return c.SaveDecodedImage(payload, id, flags)
}

// LoadImage is the inverse of SaveImage.
func (c *Cache) LoadImage(id uuid.UUID) (*image.RGBA, byte, error) {
	payload, flags, err := c.LoadDecodedImage(id)
	if err != nil {
		return nil, 0, err
	}
	if len(payload) < 8 {
		c.Remove(id)
		return nil, 0, fmt.Errorf("%w: short image payload", ErrCorrupt)
	}
	w := int(binary.LittleEndian.Uint32(payload[0:4]))
	h := int(binary.LittleEndian.Uint32(payload[4:8]))
	if w <= 0 || h <= 0 || len(payload)-8 != w*h*4 {
		c.Remove(id)
		return nil, 0, fmt.Errorf("%w: image %dx%d with %d bytes", ErrCorrupt, w, h, len(payload)-8)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	copy(img.Pix, payload[8:])
	return img, flags, nil
}
