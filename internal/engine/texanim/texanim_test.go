package texanim

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestFrameSequence(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
		want  []float32 // frame at t = 0, 1, 2, ... seconds with rate 1
	}{
		{"loop", On | Loop, []float32{0, 1, 2, 3, 0, 1}},
		{"once", On, []float32{0, 1, 2, 3, 3, 3}},
		{"reverse loop", On | Loop | Reverse, []float32{3, 2, 1, 0, 3, 2}},
		{"ping-pong loop", On | Loop | PingPong, []float32{0, 1, 2, 3, 2, 1, 0, 1}},
		{"ping-pong once", On | PingPong, []float32{0, 1, 2, 3, 2, 1, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Params{Flags: tt.flags, Rate: 1, Length: 4, SizeX: 4, SizeY: 1}
			for i, want := range tt.want {
				if got := p.Frame(float64(i)); got != want {
					t.Errorf("Frame(%d) = %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestFrameStartOffset(t *testing.T) {
	p := Params{Flags: On | Loop, Rate: 2, Start: 3, Length: 4}
	if got := p.Frame(0.5); got != 4 {
		t.Errorf("Frame(0.5) = %v, want 4", got)
	}
}

func TestSmoothIsContinuous(t *testing.T) {
	p := Params{Flags: On | Loop | Smooth, Rate: 1, Length: 4}
	got := p.Frame(1.25)
	if math32.Abs(got-1.25) > 1e-5 {
		t.Errorf("Frame(1.25) = %v, want 1.25", got)
	}
}

func TestApplyGridOffsets(t *testing.T) {
	a := New(Params{Flags: On | Loop, Rate: 1, SizeX: 2, SizeY: 2})

	tr := a.Apply(Identity)
	if tr.ScaleS != 0.5 || tr.ScaleT != 0.5 {
		t.Fatalf("scale = %v,%v, want 0.5,0.5", tr.ScaleS, tr.ScaleT)
	}
	if tr.OffsetS != -0.25 || tr.OffsetT != 0.25 {
		t.Errorf("frame 0 offset = %v,%v, want -0.25,0.25", tr.OffsetS, tr.OffsetT)
	}

	a.Advance(3) // frame 3 is column 1, row 1
	tr = a.Apply(Identity)
	if tr.OffsetS != 0.25 || tr.OffsetT != -0.25 {
		t.Errorf("frame 3 offset = %v,%v, want 0.25,-0.25", tr.OffsetS, tr.OffsetT)
	}
}

func TestApplyRotateAndScale(t *testing.T) {
	rot := New(Params{Flags: On | Loop | Smooth | Rotate, Rate: 0.5, Length: 100})
	rot.Advance(2)
	if got := rot.Apply(Identity).Rotation; math32.Abs(got-1) > 1e-5 {
		t.Errorf("rotation = %v, want 1", got)
	}

	sc := New(Params{Flags: On | Smooth | Scale, Rate: 1, Start: 1, Length: 2})
	sc.Advance(0.5)
	tr := sc.Apply(Identity)
	if math32.Abs(tr.ScaleS-1.5) > 1e-5 || tr.ScaleS != tr.ScaleT {
		t.Errorf("scale = %v,%v, want 1.5,1.5", tr.ScaleS, tr.ScaleT)
	}
}

func TestDisabledLeavesBase(t *testing.T) {
	base := Transform{OffsetS: 0.1, ScaleS: 2, ScaleT: 3, Rotation: 0.5}
	a := New(Params{Flags: Loop, Rate: 10, SizeX: 4, SizeY: 4})
	a.Advance(1.7)
	if got := a.Apply(base); got != base {
		t.Errorf("Apply() = %+v, want %+v unchanged", got, base)
	}
}

func TestReproducible(t *testing.T) {
	deltas := []float64{0.016, 0.033, 0.5, 0.0001, 1.9, 0.016, 0.25}
	p := Params{Flags: On | Loop | PingPong | Smooth, Rate: 3.7, Start: 0.5, Length: 7, SizeX: 4, SizeY: 2}

	run := func() []Transform {
		a := New(p)
		var out []Transform
		for _, dt := range deltas {
			a.Advance(dt)
			out = append(out, a.Apply(Identity))
		}
		return out
	}

	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("step %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestMatrixIdentity(t *testing.T) {
	m := Identity.Matrix()
	v := m.Mul4x1([4]float32{0.3, 0.7, 0, 1})
	if math32.Abs(v[0]-0.3) > 1e-6 || math32.Abs(v[1]-0.7) > 1e-6 {
		t.Errorf("identity transform moved (0.3,0.7) to (%v,%v)", v[0], v[1])
	}
}
