package primmesh

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ProfileType is the cross-section of a primitive.
type ProfileType uint8

const (
	ProfileCircle ProfileType = iota
	ProfileSquare
	ProfileIsoTriangle
	ProfileEquilateralTriangle
	ProfileRightTriangle
	ProfileHalfCircle
)

// PathType is the curve the profile is swept along.
type PathType uint8

const (
	// PathLine extrudes along local Z (boxes, cylinders, prisms).
	PathLine PathType = iota
	// PathCircle revolves around local X (torus, tube, ring).
	PathCircle
)

// Shape describes a parametric primitive.
type Shape struct {
	Profile ProfileType
	Path    PathType

	// TopScaleX and TopScaleY scale the top of a line path; 1 means no taper.
	TopScaleX, TopScaleY float32
	// TwistBegin and TwistEnd rotate the profile at each end of the path, in radians.
	TwistBegin, TwistEnd float32
	// HoleSizeY is the thickness of the profile on a circle path, 0.05 to 0.5.
	HoleSizeY float32

	// Cut and hollow are not generated; a non-zero value yields ErrUnsupported.
	ProfileBegin, ProfileEnd float32
	Hollow                   float32
}

// Box returns the default cube shape.
func Box() Shape {
	return Shape{Profile: ProfileSquare, Path: PathLine, TopScaleX: 1, TopScaleY: 1, ProfileEnd: 1}
}

// IsSimple reports whether the shape is cheap enough to generate on the render thread.
func (s Shape) IsSimple() bool {
	return s.Path == PathLine && s.TwistBegin == s.TwistEnd
}

// profileEdge is one run of profile points; each edge becomes a face.
type profileEdge struct {
	points  []mgl32.Vec2
	normals []mgl32.Vec2
}

func polygon(corners []mgl32.Vec2) []profileEdge {
	edges := make([]profileEdge, len(corners))
	for i := range corners {
		a, b := corners[i], corners[(i+1)%len(corners)]
		d := b.Sub(a).Normalize()
		n := mgl32.Vec2{d[1], -d[0]}
		edges[i] = profileEdge{points: []mgl32.Vec2{a, b}, normals: []mgl32.Vec2{n, n}}
	}
	return edges
}

func arc(from, to float32, segments int) profileEdge {
	var e profileEdge
	for i := 0; i <= segments; i++ {
		a := from + (to-from)*float32(i)/float32(segments)
		c, s := math32.Cos(a), math32.Sin(a)
		e.points = append(e.points, mgl32.Vec2{0.5 * c, 0.5 * s})
		e.normals = append(e.normals, mgl32.Vec2{c, s})
	}
	return e
}

// profile returns the counter-clockwise outline of the cross-section in the unit square.
func profile(t ProfileType, detail int) ([]profileEdge, error) {
	segments := max(6, detail)
	switch t {
	case ProfileSquare:
		return polygon([]mgl32.Vec2{{-0.5, -0.5}, {0.5, -0.5}, {0.5, 0.5}, {-0.5, 0.5}}), nil
	case ProfileIsoTriangle, ProfileEquilateralTriangle:
		return polygon([]mgl32.Vec2{{-0.5, -0.5}, {0.5, -0.5}, {0, 0.5}}), nil
	case ProfileRightTriangle:
		return polygon([]mgl32.Vec2{{-0.5, -0.5}, {0.5, -0.5}, {-0.5, 0.5}}), nil
	case ProfileCircle:
		return []profileEdge{arc(0, 2*math32.Pi, segments)}, nil
	case ProfileHalfCircle:
		flat := polygon([]mgl32.Vec2{{-0.5, 0}, {0.5, 0}})[0]
		return []profileEdge{flat, arc(0, math32.Pi, segments/2)}, nil
	}
	return nil, fmt.Errorf("%w: profile %d", ErrUnsupported, t)
}

// outline returns the distinct points of all edges in order, for cap triangulation.
func outline(edges []profileEdge) []mgl32.Vec2 {
	var pts []mgl32.Vec2
	for _, e := range edges {
		pts = append(pts, e.points[:len(e.points)-1]...)
	}
	return pts
}

// Generate builds the faces of a parametric primitive. detail is the number of segments
// used for round profiles and circular paths.
func Generate(s Shape, detail int) (*Mesh, error) {
	if s.ProfileBegin != 0 || (s.ProfileEnd != 0 && s.ProfileEnd != 1) || s.Hollow != 0 {
		return nil, fmt.Errorf("%w: cut or hollow", ErrUnsupported)
	}
	edges, err := profile(s.Profile, detail)
	if err != nil {
		return nil, err
	}
	switch s.Path {
	case PathLine:
		return extrude(s, edges, detail)
	case PathCircle:
		return revolve(s, edges, detail)
	}
	return nil, fmt.Errorf("%w: path %d", ErrUnsupported, s.Path)
}

// extrude sweeps the profile along Z from -0.5 to 0.5. Face 0 is the top cap, then one
// face per profile edge, then the bottom cap.
func extrude(s Shape, edges []profileEdge, detail int) (*Mesh, error) {
	topX, topY := s.TopScaleX, s.TopScaleY
	if topX == 0 && topY == 0 {
		topX, topY = 1, 1
	}
	steps := 1
	if s.TwistBegin != s.TwistEnd {
		steps = max(4, detail/2)
	}

	ring := func(t float32) (scaleX, scaleY, twist, z float32) {
		return 1 + (topX-1)*t, 1 + (topY-1)*t, s.TwistBegin + (s.TwistEnd-s.TwistBegin)*t, t - 0.5
	}
	place := func(p mgl32.Vec2, t float32) mgl32.Vec3 {
		sx, sy, tw, z := ring(t)
		c, sn := math32.Cos(tw), math32.Sin(tw)
		x, y := p[0]*sx, p[1]*sy
		return mgl32.Vec3{x*c - y*sn, x*sn + y*c, z}
	}
	turn := func(n mgl32.Vec2, t float32) mgl32.Vec3 {
		_, _, tw, _ := ring(t)
		c, sn := math32.Cos(tw), math32.Sin(tw)
		return mgl32.Vec3{n[0]*c - n[1]*sn, n[0]*sn + n[1]*c, 0}
	}

	faces := make([]Face, 0, len(edges)+2)
	faces = append(faces, capFace(0, outline(edges), place, 1, 1))

	for ei, e := range edges {
		b := newFaceBuilder(ei + 1)
		along := edgeLengths(e.points)
		for st := 0; st <= steps; st++ {
			t := float32(st) / float32(steps)
			for i, p := range e.points {
				b.vertex(place(p, t), turn(e.normals[i], t), along[i], t)
			}
		}
		row := len(e.points)
		for st := 0; st < steps; st++ {
			for i := 0; i < row-1; i++ {
				a := uint16(st*row + i)
				c := a + uint16(row)
				b.triangle(a, a+1, c+1)
				b.triangle(a, c+1, c)
			}
		}
		faces = append(faces, b.face)
	}

	faces = append(faces, capFace(len(edges)+1, outline(edges), place, 0, -1))
	return finish(faces)
}

// capFace fan-triangulates the convex outline at path position t, facing dir along Z.
func capFace(id int, pts []mgl32.Vec2, place func(mgl32.Vec2, float32) mgl32.Vec3, t, dir float32) Face {
	b := newFaceBuilder(id)
	normal := mgl32.Vec3{0, 0, dir}

	var centroid mgl32.Vec2
	for _, p := range pts {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Mul(1 / float32(len(pts)))

	center := b.vertex(place(centroid, t), normal, centroid[0]+0.5, centroid[1]+0.5)
	first := uint16(b.count())
	for _, p := range pts {
		b.vertex(place(p, t), normal, p[0]+0.5, p[1]+0.5)
	}
	n := uint16(len(pts))
	for i := uint16(0); i < n; i++ {
		a, c := first+i, first+(i+1)%n
		if dir > 0 {
			b.triangle(center, a, c)
		} else {
			b.triangle(center, c, a)
		}
	}
	return b.face
}

// revolve sweeps the profile around the X axis. The profile's Y is scaled by the hole
// size and pushed out so the ring fits the unit box.
func revolve(s Shape, edges []profileEdge, detail int) (*Mesh, error) {
	thickness := s.HoleSizeY
	if thickness <= 0 {
		thickness = 0.25
	}
	thickness = math32.Min(math32.Max(thickness, 0.05), 0.5)
	centerRadius := 0.5 - thickness/2
	steps := max(8, detail)

	faces := make([]Face, 0, len(edges))
	for ei, e := range edges {
		b := newFaceBuilder(ei)
		along := edgeLengths(e.points)
		for st := 0; st <= steps; st++ {
			v := float32(st) / float32(steps)
			a := 2 * math32.Pi * v
			c, sn := math32.Cos(a), math32.Sin(a)
			for i, p := range e.points {
				r := centerRadius + p[1]*thickness
				pos := mgl32.Vec3{p[0], r * c, r * sn}
				n := e.normals[i]
				normal := mgl32.Vec3{n[0], n[1] * c, n[1] * sn}.Normalize()
				b.vertex(pos, normal, along[i], v)
			}
		}
		row := len(e.points)
		for st := 0; st < steps; st++ {
			for i := 0; i < row-1; i++ {
				a := uint16(st*row + i)
				c := a + uint16(row)
				b.triangle(a, a+1, c+1)
				b.triangle(a, c+1, c)
			}
		}
		faces = append(faces, b.face)
	}
	return finish(faces)
}

// edgeLengths returns the normalized cumulative length at each point, used as U.
func edgeLengths(pts []mgl32.Vec2) []float32 {
	out := make([]float32, len(pts))
	var total float32
	for i := 1; i < len(pts); i++ {
		total += pts[i].Sub(pts[i-1]).Len()
		out[i] = total
	}
	if total > 0 {
		for i := range out {
			out[i] /= total
		}
	}
	return out
}
