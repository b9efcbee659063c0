package diskcache

import (
	"bytes"
	"errors"
	"image"
	"os"
	"testing"

	"github.com/google/uuid"
)

func TestRoundTrip(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	id := uuid.New()
	payload := bytes.Repeat([]byte{1, 2, 3, 4, 250}, 1000)
	flags := FlagHasAlpha | FlagIsMask

	if err := c.SaveDecodedImage(payload, id, flags); err != nil {
		t.Fatalf("SaveDecodedImage() error = %v", err)
	}
	got, gotFlags, err := c.LoadDecodedImage(id)
	if err != nil {
		t.Fatalf("LoadDecodedImage() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("payload differs after round trip")
	}
	if gotFlags != flags {
		t.Errorf("flags = %03b, want %03b", gotFlags, flags)
	}
}

func TestRoundTripAllFlags(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for flags := byte(0); flags < 8; flags++ {
		id := uuid.New()
		if err := c.SaveDecodedImage([]byte{flags}, id, flags); err != nil {
			t.Fatal(err)
		}
		_, got, err := c.LoadDecodedImage(id)
		if err != nil {
			t.Fatal(err)
		}
		if got != flags {
			t.Errorf("flags %03b loaded as %03b", flags, got)
		}
	}
}

func TestLoadMissing(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.LoadDecodedImage(uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestCorruptEntryRemoved(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	id := uuid.New()
	if err := c.SaveDecodedImage([]byte("hello"), id, 0); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.path(id), []byte("XX\x01\x00garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := c.LoadDecodedImage(id); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("error = %v, want ErrCorrupt", err)
	}
	if _, err := os.Stat(c.path(id)); !errors.Is(err, os.ErrNotExist) {
		t.Error("corrupt entry was not removed")
	}
}

func TestIDMismatch(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	a, b := uuid.New(), uuid.New()
	if err := c.SaveDecodedImage([]byte("payload"), a, 0); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(c.path(a))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := parse(data, b); !errors.Is(err, ErrCorrupt) {
		t.Errorf("error = %v, want ErrCorrupt", err)
	}
}

func TestImageRoundTrip(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for i := range img.Pix {
		img.Pix[i] = byte(i * 7)
	}
	id := uuid.New()
	if err := c.SaveImage(id, img, FlagHasAlpha); err != nil {
		t.Fatal(err)
	}
	got, flags, err := c.LoadImage(id)
	if err != nil {
		t.Fatalf("LoadImage() error = %v", err)
	}
	if got.Rect != img.Rect || !bytes.Equal(got.Pix, img.Pix) {
		t.Error("image differs after round trip")
	}
	if flags != FlagHasAlpha {
		t.Errorf("flags = %d, want %d", flags, FlagHasAlpha)
	}
}
