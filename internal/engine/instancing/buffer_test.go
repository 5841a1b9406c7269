package instancing

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Faultbox/zenbsp/internal/gfx"
	"github.com/Faultbox/zenbsp/internal/gfx/memgfx"
	zmath "github.com/Faultbox/zenbsp/pkg/math"
)

func record(i int) Record {
	return Record{World: zmath.Translate(float32(i), 0, 0), Color: uint32(i)}
}

// decode reads record i back from raw buffer bytes.
func decode(t *testing.T, data []byte, i int) Record {
	t.Helper()
	off := i * RecordSize
	if off+RecordSize > len(data) {
		t.Fatalf("record %d beyond buffer of %d bytes", i, len(data))
	}
	var r Record
	for k := range r.World {
		r.World[k] = math.Float32frombits(binary.LittleEndian.Uint32(data[off+4*k:]))
	}
	r.Color = binary.LittleEndian.Uint32(data[off+64:])
	return r
}

func TestRecordSize(t *testing.T) {
	if RecordSize != 68 {
		t.Errorf("RecordSize = %d, want 68", RecordSize)
	}
}

func TestAppendWithinCapacity(t *testing.T) {
	dev := memgfx.New()
	b, err := NewBuffer(dev, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Begin(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if err := b.Append(record(i)); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	if err := b.End(); err != nil {
		t.Fatal(err)
	}
	if b.Grows() != 0 || b.Capacity() != 4 {
		t.Errorf("grows %d capacity %d, want 0 and 4", b.Grows(), b.Capacity())
	}
	data := b.GPU().(*memgfx.Buffer).Contents()
	for i := 0; i < 4; i++ {
		if got := decode(t, data, i); got != record(i) {
			t.Errorf("record %d: got %+v", i, got)
		}
	}
}

func TestGrowPreservesSession(t *testing.T) {
	dev := memgfx.New()
	b, err := NewBuffer(dev, 64)
	if err != nil {
		t.Fatal(err)
	}
	first := b.GPU().(*memgfx.Buffer)

	if err := b.Begin(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 65; i++ {
		if err := b.Append(record(i)); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	if err := b.End(); err != nil {
		t.Fatal(err)
	}

	if b.Grows() != 1 {
		t.Fatalf("grows = %d, want 1", b.Grows())
	}
	if b.Capacity() != 128 {
		t.Errorf("capacity = %d, want 128", b.Capacity())
	}
	if b.Capacity() < b.Len() {
		t.Errorf("capacity %d below record count %d", b.Capacity(), b.Len())
	}
	if !first.Released() {
		t.Error("old buffer not released")
	}
	if dev.LiveBuffers() != 1 {
		t.Errorf("live buffers = %d, want 1", dev.LiveBuffers())
	}

	data := b.GPU().(*memgfx.Buffer).Contents()
	for i := 0; i < 65; i++ {
		if got := decode(t, data, i); got != record(i) {
			t.Fatalf("record %d lost after growth: got %+v", i, got)
		}
	}
}

func TestGrowNeverShrinks(t *testing.T) {
	b, err := NewBuffer(memgfx.New(), 16)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Grow(3); err != nil {
		t.Fatal(err)
	}
	if b.Capacity() != 32 {
		t.Errorf("capacity = %d, want 32", b.Capacity())
	}
	if b.Mapped() {
		t.Error("Grow outside a session should not map")
	}
}

func TestBeginResetsSession(t *testing.T) {
	b, _ := NewBuffer(memgfx.New(), 8)
	_ = b.Begin()
	_ = b.Append(record(1))
	_ = b.Append(record(2))
	_ = b.End()
	if b.Len() != 2 {
		t.Fatalf("Len = %d, want 2", b.Len())
	}
	_ = b.Begin()
	if b.Len() != 0 {
		t.Errorf("Len after Begin = %d, want 0", b.Len())
	}
}

func TestMapFailure(t *testing.T) {
	dev := memgfx.New()
	b, _ := NewBuffer(dev, 8)
	dev.FailMaps = 1
	if err := b.Begin(); !errors.Is(err, gfx.ErrMapFailed) {
		t.Fatalf("Begin: got %v, want ErrMapFailed", err)
	}
	if !b.Failed() || b.Mapped() {
		t.Error("failed Begin should leave the buffer unmapped and flagged")
	}
	if err := b.Append(record(0)); !errors.Is(err, ErrNotMapped) {
		t.Errorf("Append: got %v, want ErrNotMapped", err)
	}
	b.Reset()
	if b.Failed() {
		t.Error("Reset should clear the failure")
	}
	if err := b.Begin(); err != nil {
		t.Errorf("Begin after failure: %v", err)
	}
}

func TestGrowRemapFailureDiscardsSession(t *testing.T) {
	dev := memgfx.New()
	b, _ := NewBuffer(dev, 2)
	if err := b.Begin(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := b.Append(record(i)); err != nil {
			t.Fatal(err)
		}
	}

	dev.FailMaps = 1
	if err := b.Append(record(2)); !errors.Is(err, gfx.ErrMapFailed) {
		t.Fatalf("Append: got %v, want ErrMapFailed", err)
	}
	if b.Len() != 0 {
		t.Errorf("Len = %d after failed remap, want 0", b.Len())
	}
	if !b.Failed() || b.Mapped() {
		t.Error("failed remap should leave the buffer unmapped and flagged")
	}
	if b.Capacity() != 4 {
		t.Errorf("capacity = %d, want 4", b.Capacity())
	}
	if err := b.End(); err != nil {
		t.Errorf("End: %v", err)
	}
	if dev.LiveBuffers() != 1 {
		t.Errorf("live buffers = %d, want 1", dev.LiveBuffers())
	}
}

func TestRelease(t *testing.T) {
	dev := memgfx.New()
	b, _ := NewBuffer(dev, 8)
	_ = b.Begin()
	if err := b.Release(); err != nil {
		t.Fatal(err)
	}
	if dev.LiveBuffers() != 0 {
		t.Errorf("live buffers = %d, want 0", dev.LiveBuffers())
	}
}
