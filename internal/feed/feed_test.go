package feed

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/Faultbox/gridview/internal/avatar"
	"github.com/Faultbox/gridview/internal/engine/primmesh"
	"github.com/Faultbox/gridview/internal/logger"
	"github.com/Faultbox/gridview/internal/scene"
)

func init() {
	logger.InitNop()
}

type recordingSink struct {
	prims   []scene.PrimUpdate
	kills   []scene.LocalID
	avatars []scene.AvatarUpdate
	patches []scene.TerrainPatch
	regions []scene.Region
}

func (r *recordingSink) OnObjectUpdated(u scene.PrimUpdate)   { r.prims = append(r.prims, u) }
func (r *recordingSink) OnObjectKilled(id scene.LocalID)      { r.kills = append(r.kills, id) }
func (r *recordingSink) OnAvatarUpdated(u scene.AvatarUpdate) { r.avatars = append(r.avatars, u) }
func (r *recordingSink) OnTerrainPatch(p scene.TerrainPatch)  { r.patches = append(r.patches, p) }
func (r *recordingSink) OnRegionInfo(reg scene.Region)        { r.regions = append(r.regions, reg) }

func envelope(t *testing.T, typ string, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(Envelope{Type: typ, Data: data})
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestDispatchObjectUpdate(t *testing.T) {
	tex := uuid.New()
	red := [4]float32{1, 0, 0, 1}
	msg := ObjectUpdate{
		LocalID:  7,
		FullID:   uuid.New(),
		Position: [3]float32{1, 2, 3},
		Rotation: [4]float32{0, 0, 0.7071068, 0.7071068},
		Velocity: [3]float32{0, 1, 0},
		Texture:  Face{Texture: tex},
		Faces:    map[int]Face{2: {Color: &red, Repeat: [2]float32{2, 3}}},
		Anim:     &Anim{Flags: 1, Rate: 4, SizeX: 2, SizeY: 2, Face: -1},
	}
	sink := &recordingSink{}
	if err := Dispatch(sink, envelope(t, TypeObjectUpdate, msg)); err != nil {
		t.Fatal(err)
	}
	if len(sink.prims) != 1 {
		t.Fatalf("got %d updates", len(sink.prims))
	}
	u := sink.prims[0]
	if u.LocalID != 7 || u.FullID != msg.FullID {
		t.Errorf("ids = %d %v", u.LocalID, u.FullID)
	}
	if u.Position != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("Position = %v", u.Position)
	}
	if u.Rotation.W != 0.7071068 || u.Rotation.V.Z() != 0.7071068 {
		t.Errorf("Rotation = %v", u.Rotation)
	}
	if u.Scale != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("missing scale should default to 1, got %v", u.Scale)
	}
	if u.Shape != primmesh.Box() {
		t.Errorf("missing shape should default to a box, got %+v", u.Shape)
	}
	if u.Textures.Default.TextureID != tex || u.Textures.Default.Color != [4]float32{1, 1, 1, 1} {
		t.Errorf("default entry = %+v", u.Textures.Default)
	}
	f2 := u.Textures.Face(2)
	if f2.Color != red || f2.RepeatS != 2 || f2.RepeatT != 3 {
		t.Errorf("face 2 entry = %+v", f2)
	}
	if u.Anim == nil || !u.Anim.Applies(0) || !u.Anim.Applies(5) {
		t.Errorf("anim = %+v", u.Anim)
	}
	if u.Motion.Velocity != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("Velocity = %v", u.Motion.Velocity)
	}
}

func TestDispatchTerseKeepsOnlyTransform(t *testing.T) {
	sink := &recordingSink{}
	msg := ObjectUpdate{LocalID: 3, Terse: true, Position: [3]float32{5, 5, 5}, Source: "bogus"}
	if err := Dispatch(sink, envelope(t, TypeObjectUpdate, msg)); err != nil {
		t.Fatal(err)
	}
	u := sink.prims[0]
	if !u.Terse || u.Position != (mgl32.Vec3{5, 5, 5}) || u.Rotation != mgl32.QuatIdent() {
		t.Errorf("terse update = %+v", u)
	}
}

func TestDispatchErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"garbage", []byte("{not json")},
		{"unknown type", []byte(`{"type":"weather","data":{}}`)},
		{"missing id", envelope(t, TypeObjectUpdate, ObjectUpdate{})},
		{"bad source", envelope(t, TypeObjectUpdate, ObjectUpdate{LocalID: 1, Source: "voxel"})},
		{"bad payload", []byte(`{"type":"object_kill","data":"nope"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			if err := Dispatch(sink, tt.raw); err == nil {
				t.Error("expected error")
			}
			if len(sink.prims)+len(sink.kills) != 0 {
				t.Error("sink called for a bad message")
			}
		})
	}
	if err := Dispatch(&recordingSink{}, []byte(`{"type":"weather"}`)); !errors.Is(err, ErrUnknownType) {
		t.Errorf("err = %v, want ErrUnknownType", err)
	}
}

func TestDispatchAvatarAndEnvironment(t *testing.T) {
	sink := &recordingSink{}
	hair := uuid.New()
	msgs := [][]byte{
		envelope(t, TypeAvatarUpdate, AvatarUpdate{
			LocalID: 9, Name: "Resident", Bakes: map[string]uuid.UUID{"hair": hair, "tail": uuid.New()},
		}),
		envelope(t, TypeObjectKill, ObjectKill{LocalID: 4}),
		envelope(t, TypeTerrainPatch, TerrainPatch{X: 1, Y: 2, Heights: []float32{1, 2}}),
		envelope(t, TypeRegionInfo, RegionInfo{Name: "Ahern", Size: 256, WaterHeight: 20, Sun: [3]float32{0, 0, 1}}),
	}
	for _, m := range msgs {
		if err := Dispatch(sink, m); err != nil {
			t.Fatal(err)
		}
	}
	if len(sink.avatars) != 1 || sink.avatars[0].Bakes[avatar.SlotHair] != hair || sink.avatars[0].Name != "Resident" {
		t.Errorf("avatars = %+v", sink.avatars)
	}
	if len(sink.kills) != 1 || sink.kills[0] != 4 {
		t.Errorf("kills = %v", sink.kills)
	}
	if len(sink.patches) != 1 || sink.patches[0].X != 1 || sink.patches[0].Y != 2 {
		t.Errorf("patches = %+v", sink.patches)
	}
	if len(sink.regions) != 1 || sink.regions[0].Name != "Ahern" {
		t.Errorf("regions = %+v", sink.regions)
	}
}

func TestEncodeIntent(t *testing.T) {
	in := Intent{Kind: IntentSit, Object: 12, FullID: uuid.New(), Face: 3, Position: mgl32.Vec3{1, 2, 3}}
	raw, err := EncodeIntent(in)
	if err != nil {
		t.Fatal(err)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != TypeIntent {
		t.Errorf("Type = %q", env.Type)
	}
	var m IntentMessage
	if err := json.Unmarshal(env.Data, &m); err != nil {
		t.Fatal(err)
	}
	if m.Kind != IntentSit || m.LocalID != 12 || m.FullID != in.FullID || m.Face != 3 {
		t.Errorf("intent = %+v", m)
	}
}

func TestStoreSink(t *testing.T) {
	store := scene.NewStore()
	sink := NewStoreSink(store)
	sink.OnObjectUpdated(scene.PrimUpdate{
		LocalID:  1,
		FullID:   uuid.New(),
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
		Shape:    primmesh.Box(),
	})
	store.ApplyPending()
	if _, ok := store.GetByLocalID(1); !ok {
		t.Fatal("object not stored")
	}

	sink.OnObjectKilled(1)
	if _, ok := store.GetByLocalID(1); ok {
		t.Error("object not removed")
	}

	sink.Close()
	sink.OnObjectUpdated(scene.PrimUpdate{LocalID: 2, Rotation: mgl32.QuatIdent()})
	store.ApplyPending()
	if _, ok := store.GetByLocalID(2); ok {
		t.Error("closed sink still writes")
	}
}

func TestStoreSinkCloseWaitsForEvents(t *testing.T) {
	store := scene.NewStore()
	sink := NewStoreSink(store)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(base scene.LocalID) {
			defer wg.Done()
			for i := scene.LocalID(0); i < 500; i++ {
				sink.OnObjectUpdated(scene.PrimUpdate{
					LocalID:  base + i,
					FullID:   uuid.New(),
					Rotation: mgl32.QuatIdent(),
					Scale:    mgl32.Vec3{1, 1, 1},
					Shape:    primmesh.Box(),
				})
			}
		}(scene.LocalID(w*1000 + 1))
	}

	sink.Close()
	store.Clear()
	wg.Wait()
	store.ApplyPending()
	if prims, avatars := store.Counts(); prims != 0 || avatars != 0 {
		t.Errorf("store holds %d prims and %d avatars after close", prims, avatars)
	}
}

func TestStoreSinkRecoversNilStore(t *testing.T) {
	sink := NewStoreSink(nil)
	// Must not panic out of the sink.
	sink.OnObjectKilled(1)
	sink.OnRegionInfo(scene.DefaultRegion())
}
