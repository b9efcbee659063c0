// Package resource owns GPU-resident per-face buffers and the shared texture cache.
// Every method that touches a gpu.Device must run on the render thread.
package resource

// State is the lifecycle of a fetched or uploaded resource.
// Transitions are Unloaded → Loading → Ready, or Unloaded → Loading → Failed.
// Failed is permanent.
type State uint8

const (
	Unloaded State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}
