// Package instancing manages the per-instance data streamed next to a
// mesh for instanced draws.
package instancing

import (
	"unsafe"

	"github.com/Faultbox/zenbsp/internal/host"
	"github.com/Faultbox/zenbsp/pkg/math"
)

// Record is the per-instance vertex stream layout: a column-major world
// matrix followed by a packed RGBA color.
type Record struct {
	World math.Mat4
	Color uint32
}

// RecordSize is the stride of the instance stream in bytes.
const RecordSize = int(unsafe.Sizeof(Record{}))

// RecordOf converts host instance info to its stream layout.
func RecordOf(info host.InstanceInfo) Record {
	return Record{World: info.World, Color: info.Color}
}
