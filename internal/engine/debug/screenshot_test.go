package debug

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeFrame struct {
	w, h int32
	pix  []byte
}

func (f fakeFrame) Viewport() (int32, int32) { return f.w, f.h }
func (f fakeFrame) ReadFrame() []byte        { return f.pix }

func TestFlipRows(t *testing.T) {
	// Two rows of one pixel: bottom red, top blue.
	pix := []byte{255, 0, 0, 255, 0, 0, 255, 255}
	img, err := FlipRows(pix, 1, 2)
	if err != nil {
		t.Fatalf("FlipRows() error = %v", err)
	}
	if r, _, b, _ := img.At(0, 0).RGBA(); r != 0 || b == 0 {
		t.Error("top row should be blue")
	}
	if r, _, _, _ := img.At(0, 1).RGBA(); r == 0 {
		t.Error("bottom row should be red")
	}

	if _, err := FlipRows(pix, 2, 2); err == nil {
		t.Error("FlipRows() accepted a short buffer")
	}
}

func TestCaptureWritesPNG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	sc := NewScreenshotCapture(dir, "gridview")
	sc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	src := fakeFrame{w: 2, h: 1, pix: make([]byte, 8)}
	name, err := sc.Capture(src)
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if want := filepath.Join(dir, "gridview_2026-01-02_03-04-05.000.png"); name != want {
		t.Errorf("Capture() = %q, want %q", name, want)
	}

	f, err := os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 1 {
		t.Errorf("bounds = %v", b)
	}
}
