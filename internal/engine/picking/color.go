package picking

// Category is stored in the alpha channel of a pick colour.
type Category uint8

const (
	CategoryNone    Category = 0
	CategoryTerrain Category = 253
	CategoryAvatar  Category = 254
	CategoryPrim    Category = 255
)

func (c Category) String() string {
	switch c {
	case CategoryTerrain:
		return "terrain"
	case CategoryAvatar:
		return "avatar"
	case CategoryPrim:
		return "prim"
	}
	return "none"
}

// MaxID is the largest id that fits in the RGB channels.
const MaxID = 1<<24 - 1

// Encode packs an id and category into an RGBA colour, id little-endian in RGB.
func Encode(id uint32, cat Category) [4]byte {
	return [4]byte{byte(id), byte(id >> 8), byte(id >> 16), byte(cat)}
}

// EncodeFloat returns Encode as normalized floats for use as a draw colour.
func EncodeFloat(id uint32, cat Category) [4]float32 {
	c := Encode(id, cat)
	return [4]float32{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255, float32(c[3]) / 255}
}

// Decode unpacks a pixel read back from a pick pass. Unknown alpha values decode to
// CategoryNone.
func Decode(px [4]byte) (uint32, Category) {
	id := uint32(px[0]) | uint32(px[1])<<8 | uint32(px[2])<<16
	switch cat := Category(px[3]); cat {
	case CategoryTerrain, CategoryAvatar, CategoryPrim:
		return id, cat
	}
	return 0, CategoryNone
}
