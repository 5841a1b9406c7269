// Package gldev implements gfx.Device on OpenGL 4.1 core.
//
// Every method must be called from the thread that owns the GL context.
package gldev

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/zenbsp/internal/engine/shader"
	"github.com/Faultbox/zenbsp/internal/gfx"
	"github.com/Faultbox/zenbsp/pkg/math"
)

// Device draws pipeline states with the world shader.
type Device struct {
	log  *zap.Logger
	prog *shader.Program

	viewProj math.Mat4

	// textures maps host texture ids to GL texture names.
	textures  map[uint32]uint32
	pipelines []*pipeline

	draws int
}

var _ gfx.Device = (*Device)(nil)

// New initializes OpenGL and compiles the world shader.
// It must be called after the GL context is current.
func New(log *zap.Logger) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.CULL_FACE)
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)

	prog, err := shader.NewProgram(shader.WorldVertexSource, shader.WorldFragmentSource)
	if err != nil {
		return nil, fmt.Errorf("world shader: %w", err)
	}
	log.Debug("world shader compiled", zap.Uint32("program", prog.ID))

	return &Device{
		log:      log,
		prog:     prog,
		viewProj: math.Identity(),
		textures: make(map[uint32]uint32),
	}, nil
}

// SetViewProjection sets the camera matrix used by the next Flush calls.
func (d *Device) SetViewProjection(m math.Mat4) {
	d.viewProj = m
}

// RegisterTexture binds a host texture id to an existing GL texture.
// Unregistered ids get a generated placeholder on first use.
func (d *Device) RegisterTexture(id, name uint32) {
	d.textures[id] = name
}

// Resize updates the viewport.
func (d *Device) Resize(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
	d.log.Debug("viewport resized", zap.Int("width", width), zap.Int("height", height))
}

// Begin clears the frame.
func (d *Device) Begin() {
	d.draws = 0
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Draws returns the number of GL draw calls issued since Begin.
func (d *Device) Draws() int {
	return d.draws
}

// CreatePipelineState returns a fresh state or a copy of template. Copies
// share the template's vertex array so transient states need no fill.
func (d *Device) CreatePipelineState(template *gfx.PipelineState) *gfx.PipelineState {
	if template == nil {
		return &gfx.PipelineState{TextureID: gfx.TextureUnresolved}
	}
	c := template.Clone()
	c.Backend = template.Backend
	return c
}

// Close deletes every GL object the device created. Buffers belong to
// their owners and are not touched.
func (d *Device) Close() error {
	var err error
	for _, p := range d.pipelines {
		if p.vao != 0 {
			gl.DeleteVertexArrays(1, &p.vao)
			p.vao = 0
		}
	}
	d.pipelines = nil
	for id, name := range d.textures {
		gl.DeleteTextures(1, &name)
		delete(d.textures, id)
	}
	d.prog.Delete()
	if code := gl.GetError(); code != gl.NO_ERROR {
		err = multierr.Append(err, fmt.Errorf("gldev: close: GL error 0x%x", code))
	}
	d.log.Info("device closed")
	return err
}

// texture returns the GL name for a host texture id, generating a 2x2
// checker tinted by the id when it has not been registered.
func (d *Device) texture(id uint32) uint32 {
	if name, ok := d.textures[id]; ok {
		return name
	}
	var name uint32
	gl.GenTextures(1, &name)
	gl.BindTexture(gl.TEXTURE_2D, name)
	pixels := placeholderPixels(id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, 2, 2, 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&pixels[0]))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	d.textures[id] = name
	d.log.Debug("placeholder texture created", zap.Uint32("id", id), zap.Uint32("name", name))
	return name
}

// ReadPixels returns the RGBA contents of the back buffer, bottom row first.
func (d *Device) ReadPixels(width, height int) []byte {
	pixels := make([]byte, width*height*4)
	if len(pixels) == 0 {
		return pixels
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&pixels[0]))
	return pixels
}
