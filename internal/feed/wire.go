package feed

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/Faultbox/gridview/internal/avatar"
	"github.com/Faultbox/gridview/internal/engine/primmesh"
	"github.com/Faultbox/gridview/internal/engine/texanim"
	"github.com/Faultbox/gridview/internal/scene"
)

// Message types carried in Envelope.Type.
const (
	TypeObjectUpdate = "object_update"
	TypeObjectKill   = "object_kill"
	TypeAvatarUpdate = "avatar_update"
	TypeTerrainPatch = "terrain_patch"
	TypeRegionInfo   = "region_info"
	TypeIntent       = "intent"
)

// ErrUnknownType is returned by Dispatch for message types it does not handle.
var ErrUnknownType = errors.New("feed: unknown message type")

// Envelope is one JSON message on the wire.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Face is the wire form of a texture entry.
type Face struct {
	Texture    uuid.UUID   `json:"texture,omitempty"`
	Color      *[4]float32 `json:"color,omitempty"`
	Repeat     [2]float32  `json:"repeat,omitempty"`
	Offset     [2]float32  `json:"offset,omitempty"`
	Rotation   float32     `json:"rotation,omitempty"`
	Fullbright bool        `json:"fullbright,omitempty"`
	Shiny      float32     `json:"shiny,omitempty"`
	Glow       float32     `json:"glow,omitempty"`
}

func (f Face) entry() scene.TextureEntry {
	e := scene.DefaultTextureEntry()
	e.TextureID = f.Texture
	if f.Color != nil {
		e.Color = *f.Color
	}
	if f.Repeat != ([2]float32{}) {
		e.RepeatS, e.RepeatT = f.Repeat[0], f.Repeat[1]
	}
	e.OffsetS, e.OffsetT = f.Offset[0], f.Offset[1]
	e.Rotation = f.Rotation
	e.Fullbright = f.Fullbright
	e.Shiny = f.Shiny
	e.Glow = f.Glow
	return e
}

// Shape is the wire form of the primitive shape parameters.
type Shape struct {
	Profile      uint8      `json:"profile"`
	Path         uint8      `json:"path"`
	TopScale     [2]float32 `json:"top_scale"`
	Twist        [2]float32 `json:"twist,omitempty"`
	HoleSizeY    float32    `json:"hole_size_y,omitempty"`
	ProfileBegin float32    `json:"profile_begin,omitempty"`
	ProfileEnd   float32    `json:"profile_end,omitempty"`
	Hollow       float32    `json:"hollow,omitempty"`
}

func (s *Shape) shape() primmesh.Shape {
	if s == nil {
		return primmesh.Box()
	}
	return primmesh.Shape{
		Profile:      primmesh.ProfileType(s.Profile),
		Path:         primmesh.PathType(s.Path),
		TopScaleX:    s.TopScale[0],
		TopScaleY:    s.TopScale[1],
		TwistBegin:   s.Twist[0],
		TwistEnd:     s.Twist[1],
		HoleSizeY:    s.HoleSizeY,
		ProfileBegin: s.ProfileBegin,
		ProfileEnd:   s.ProfileEnd,
		Hollow:       s.Hollow,
	}
}

// Anim is the wire form of a texture animation.
type Anim struct {
	Flags  uint8   `json:"flags"`
	Rate   float32 `json:"rate"`
	Start  float32 `json:"start,omitempty"`
	Length float32 `json:"length,omitempty"`
	SizeX  int     `json:"size_x"`
	SizeY  int     `json:"size_y"`

	// Face is the animated face, -1 for all.
	Face int `json:"face"`
}

// ObjectUpdate is a full or terse primitive update.
type ObjectUpdate struct {
	LocalID  uint32    `json:"local_id"`
	FullID   uuid.UUID `json:"full_id"`
	ParentID uint32    `json:"parent_id,omitempty"`
	Terse    bool      `json:"terse,omitempty"`

	Position        [3]float32 `json:"position"`
	Rotation        [4]float32 `json:"rotation"` // x, y, z, w
	Scale           [3]float32 `json:"scale"`
	Velocity        [3]float32 `json:"velocity"`
	Acceleration    [3]float32 `json:"acceleration"`
	AngularVelocity [3]float32 `json:"angular_velocity"`

	AttachmentPoint uint8        `json:"attachment_point,omitempty"`
	Source          string       `json:"source,omitempty"`
	Shape           *Shape       `json:"shape,omitempty"`
	SculptID        uuid.UUID    `json:"sculpt_id,omitempty"`
	SculptType      uint8        `json:"sculpt_type,omitempty"`
	Texture         Face         `json:"texture"`
	Faces           map[int]Face `json:"faces,omitempty"`
	Anim            *Anim        `json:"anim,omitempty"`
}

func quat(q [4]float32) mgl32.Quat {
	if q == ([4]float32{}) {
		return mgl32.QuatIdent()
	}
	return mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}
}

func motion(v, a, w [3]float32) scene.Motion {
	return scene.Motion{Velocity: v, Acceleration: a, AngularVelocity: w}
}

func source(s string) (scene.MeshSource, error) {
	switch s {
	case "", "prim":
		return scene.SourceParametric, nil
	case "sculpt":
		return scene.SourceSculpt, nil
	case "mesh":
		return scene.SourceMesh, nil
	}
	return 0, fmt.Errorf("feed: unknown mesh source %q", s)
}

// Update converts the message to a store update.
func (m *ObjectUpdate) Update() (scene.PrimUpdate, error) {
	if m.LocalID == 0 {
		return scene.PrimUpdate{}, errors.New("feed: object update without local id")
	}
	u := scene.PrimUpdate{
		LocalID:  scene.LocalID(m.LocalID),
		FullID:   m.FullID,
		ParentID: scene.LocalID(m.ParentID),
		Terse:    m.Terse,
		Position: m.Position,
		Rotation: quat(m.Rotation),
		Scale:    m.Scale,
		Motion:   motion(m.Velocity, m.Acceleration, m.AngularVelocity),
	}
	if m.Terse {
		return u, nil
	}
	src, err := source(m.Source)
	if err != nil {
		return scene.PrimUpdate{}, err
	}
	if u.Scale == (mgl32.Vec3{}) {
		u.Scale = mgl32.Vec3{1, 1, 1}
	}
	u.AttachmentPoint = m.AttachmentPoint
	u.Source = src
	u.Shape = m.Shape.shape()
	u.SculptID = m.SculptID
	u.SculptType = primmesh.SculptType(m.SculptType)
	u.Textures = scene.TextureEntries{Default: m.Texture.entry()}
	if len(m.Faces) > 0 {
		u.Textures.Faces = make(map[int]scene.TextureEntry, len(m.Faces))
		for i, f := range m.Faces {
			u.Textures.Faces[i] = f.entry()
		}
	}
	if m.Anim != nil {
		u.Anim = &scene.AnimParams{
			Params: texanim.Params{
				Flags:  texanim.Flags(m.Anim.Flags),
				Rate:   m.Anim.Rate,
				Start:  m.Anim.Start,
				Length: m.Anim.Length,
				SizeX:  m.Anim.SizeX,
				SizeY:  m.Anim.SizeY,
			},
			Face: m.Anim.Face,
		}
	}
	return u, nil
}

// ObjectKill removes an object.
type ObjectKill struct {
	LocalID uint32 `json:"local_id"`
}

// AvatarUpdate is a full or terse avatar update. Bakes are keyed by slot name.
type AvatarUpdate struct {
	LocalID  uint32    `json:"local_id"`
	FullID   uuid.UUID `json:"full_id"`
	ParentID uint32    `json:"parent_id,omitempty"`
	Terse    bool      `json:"terse,omitempty"`

	Position        [3]float32 `json:"position"`
	Rotation        [4]float32 `json:"rotation"`
	Velocity        [3]float32 `json:"velocity"`
	Acceleration    [3]float32 `json:"acceleration"`
	AngularVelocity [3]float32 `json:"angular_velocity"`

	Name  string               `json:"name,omitempty"`
	Size  [3]float32           `json:"size,omitempty"`
	Bakes map[string]uuid.UUID `json:"bakes,omitempty"`
}

// Update converts the message to a store update. Unknown bake slots are ignored.
func (m *AvatarUpdate) Update() (scene.AvatarUpdate, error) {
	if m.LocalID == 0 {
		return scene.AvatarUpdate{}, errors.New("feed: avatar update without local id")
	}
	u := scene.AvatarUpdate{
		LocalID:  scene.LocalID(m.LocalID),
		FullID:   m.FullID,
		ParentID: scene.LocalID(m.ParentID),
		Terse:    m.Terse,
		Position: m.Position,
		Rotation: quat(m.Rotation),
		Motion:   motion(m.Velocity, m.Acceleration, m.AngularVelocity),
		Name:     m.Name,
		Size:     m.Size,
	}
	for name, id := range m.Bakes {
		if slot, ok := avatar.ParseSlot(name); ok {
			u.Bakes[slot] = id
		}
	}
	return u, nil
}

// TerrainPatch is one block of heights, row major.
type TerrainPatch struct {
	X       int       `json:"x"`
	Y       int       `json:"y"`
	Heights []float32 `json:"heights"`
}

// RegionInfo carries the region environment.
type RegionInfo struct {
	Name        string     `json:"name"`
	Size        float32    `json:"size"`
	WaterHeight float32    `json:"water_height"`
	Sun         [3]float32 `json:"sun"`
}

// IntentMessage is the wire form of an Intent.
type IntentMessage struct {
	Kind     IntentKind `json:"kind"`
	LocalID  uint32     `json:"local_id"`
	FullID   uuid.UUID  `json:"full_id"`
	Face     int        `json:"face"`
	Position [3]float32 `json:"position"`
}

// EncodeIntent wraps an intent in an envelope.
func EncodeIntent(i Intent) ([]byte, error) {
	data, err := json.Marshal(IntentMessage{
		Kind:     i.Kind,
		LocalID:  uint32(i.Object),
		FullID:   i.FullID,
		Face:     i.Face,
		Position: i.Position,
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: TypeIntent, Data: data})
}

// Dispatch decodes one envelope and delivers it to sink.
func Dispatch(sink Sink, raw []byte) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("feed: decoding envelope: %w", err)
	}
	switch env.Type {
	case TypeObjectUpdate:
		var m ObjectUpdate
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return fmt.Errorf("feed: decoding %s: %w", env.Type, err)
		}
		u, err := m.Update()
		if err != nil {
			return err
		}
		sink.OnObjectUpdated(u)
	case TypeObjectKill:
		var m ObjectKill
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return fmt.Errorf("feed: decoding %s: %w", env.Type, err)
		}
		sink.OnObjectKilled(scene.LocalID(m.LocalID))
	case TypeAvatarUpdate:
		var m AvatarUpdate
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return fmt.Errorf("feed: decoding %s: %w", env.Type, err)
		}
		u, err := m.Update()
		if err != nil {
			return err
		}
		sink.OnAvatarUpdated(u)
	case TypeTerrainPatch:
		var m TerrainPatch
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return fmt.Errorf("feed: decoding %s: %w", env.Type, err)
		}
		sink.OnTerrainPatch(scene.TerrainPatch{X: m.X, Y: m.Y, Heights: m.Heights})
	case TypeRegionInfo:
		var m RegionInfo
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return fmt.Errorf("feed: decoding %s: %w", env.Type, err)
		}
		sink.OnRegionInfo(scene.Region{
			Name:         m.Name,
			Size:         m.Size,
			WaterHeight:  m.WaterHeight,
			SunDirection: m.Sun,
		})
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	return nil
}
