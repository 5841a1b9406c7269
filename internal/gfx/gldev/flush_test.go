package gldev

import (
	"testing"

	"github.com/Faultbox/zenbsp/internal/engine/instancing"
	"github.com/Faultbox/zenbsp/internal/gfx"
	"github.com/Faultbox/zenbsp/pkg/math"
)

func TestDecodeInstanceData(t *testing.T) {
	rec := []instancing.Record{{World: math.Translate(1, 2, 3), Color: 0x80FF0000}}
	world, color := decodeInstanceData(gfx.Bytes(rec))

	if world != rec[0].World {
		t.Errorf("world = %v, want %v", world, rec[0].World)
	}
	want := math.Vec4{0, 0, 1, 128.0 / 255}
	if color != want {
		t.Errorf("color = %v, want %v", color, want)
	}
}

func TestDecodeInstanceDataShort(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"truncated", make([]byte, recordBytes-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			world, color := decodeInstanceData(tt.data)
			if world != math.Identity() {
				t.Errorf("world = %v, want identity", world)
			}
			if color != (math.Vec4{1, 1, 1, 1}) {
				t.Errorf("color = %v, want white", color)
			}
		})
	}
}

func TestRecordLayout(t *testing.T) {
	if instancing.RecordSize != recordBytes {
		t.Errorf("RecordSize = %d, decoder expects %d", instancing.RecordSize, recordBytes)
	}
}

func TestPlaceholderPixels(t *testing.T) {
	a := placeholderPixels(5)
	if a != placeholderPixels(5) {
		t.Error("placeholder not deterministic")
	}
	if a == placeholderPixels(6) {
		t.Error("different ids produced the same placeholder")
	}
	for i := 3; i < len(a); i += 4 {
		if a[i] != 255 {
			t.Errorf("alpha at %d = %d, want opaque", i, a[i])
		}
	}
}
