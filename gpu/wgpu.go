package gpu

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/particles/core"
	"github.com/gekko3d/particles/particle"
)

var ErrNoRenderPass = errors.New("gpu: draw outside of a render pass")

// WgpuDevice streams particle vertices into WebGPU buffers and records draws
// into the render pass set with BeginPass. The host builds the billboard
// pipelines and installs one per blend mode with SetPipeline.
type WgpuDevice struct {
	Device  *wgpu.Device
	Queue   *wgpu.Queue
	Sampler *wgpu.Sampler

	pipelines   map[core.BlendMode]*wgpu.RenderPipeline
	textures    map[core.TextureHandle]*wgpu.TextureView
	nextTexture core.TextureHandle
	buffers     []*WgpuVertexBuffer
	materials   []*WgpuMaterial
	pass        *wgpu.RenderPassEncoder
}

func NewWgpuDevice(device *wgpu.Device) *WgpuDevice {
	return &WgpuDevice{
		Device:    device,
		Queue:     device.GetQueue(),
		pipelines: make(map[core.BlendMode]*wgpu.RenderPipeline),
		textures:  make(map[core.TextureHandle]*wgpu.TextureView),
	}
}

func (d *WgpuDevice) SetPipeline(blend core.BlendMode, pipeline *wgpu.RenderPipeline) {
	d.pipelines[blend] = pipeline
}

// RegisterTexture makes a texture view available to particle materials.
func (d *WgpuDevice) RegisterTexture(view *wgpu.TextureView) core.TextureHandle {
	d.nextTexture++
	d.textures[d.nextTexture] = view
	return d.nextTexture
}

func (d *WgpuDevice) BeginPass(pass *wgpu.RenderPassEncoder) { d.pass = pass }

func (d *WgpuDevice) EndPass() { d.pass = nil }

// MarkLost reports that buffer contents were dropped while the buffers
// themselves stay valid. Vertex buffers re-upload their full CPU mirror and
// materials their params block on the next render.
//
// It does not recover from losing the wgpu.Device: every buffer made by this
// WgpuDevice is dead then, and the host has to create a new WgpuDevice and
// rebuild the particle systems on it.
func (d *WgpuDevice) MarkLost() {
	for _, b := range d.buffers {
		b.lost = true
	}
	for _, m := range d.materials {
		m.MarkDirty()
	}
}

type WgpuVertexBuffer struct {
	buf         *wgpu.Buffer
	queue       *wgpu.Queue
	vertexCount int
	lost        bool
}

func (b *WgpuVertexBuffer) WriteVertices(first int, vertices []core.ParticleVertex, mode core.WriteMode) error {
	if len(vertices) == 0 {
		return nil
	}
	if first < 0 || first+len(vertices) > b.vertexCount {
		return fmt.Errorf("gpu: write [%d,%d) outside buffer of %d vertices", first, first+len(vertices), b.vertexCount)
	}
	size := len(vertices) * core.ParticleVertexSize
	data := unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), size)
	// Queue writes are ordered before any later submission, so both modes map to
	// the same call. No-overwrite ranges never alias in-flight vertices.
	if err := b.queue.WriteBuffer(b.buf, uint64(first*core.ParticleVertexSize), data); err != nil {
		return fmt.Errorf("gpu: write vertices (%s): %w", mode, err)
	}
	if mode == core.WriteDiscard {
		b.lost = false
	}
	return nil
}

func (b *WgpuVertexBuffer) ContentsLost() bool { return b.lost }

func (b *WgpuVertexBuffer) VertexCount() int { return b.vertexCount }

func (b *WgpuVertexBuffer) Release() { b.buf.Release() }

type WgpuIndexBuffer struct {
	buf        *wgpu.Buffer
	indexCount int
}

func (b *WgpuIndexBuffer) IndexCount() int { return b.indexCount }

func (b *WgpuIndexBuffer) Release() { b.buf.Release() }

type WgpuMaterial struct {
	Uniforms
	buf       *wgpu.Buffer
	blend     core.BlendMode
	bindGroup *wgpu.BindGroup
}

func (m *WgpuMaterial) Release() {
	if m.bindGroup != nil {
		m.bindGroup.Release()
	}
	m.buf.Release()
}

func (d *WgpuDevice) CreateVertexBuffer(label string, vertexCount int) (particle.VertexBuffer, error) {
	buf, err := d.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + "/Vertices",
		Size:  uint64(vertexCount * core.ParticleVertexSize),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create particle vertex buffer: %w", err)
	}
	vb := &WgpuVertexBuffer{buf: buf, queue: d.Queue, vertexCount: vertexCount}
	d.buffers = append(d.buffers, vb)
	return vb, nil
}

func (d *WgpuDevice) CreateIndexBuffer(label string, indices []uint32) (particle.IndexBuffer, error) {
	buf, err := d.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label + "/Indices",
		Contents: wgpu.ToBytes(indices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create particle index buffer: %w", err)
	}
	return &WgpuIndexBuffer{buf: buf, indexCount: len(indices)}, nil
}

func (d *WgpuDevice) CreateMaterial(label string, blend core.BlendMode) (particle.Material, error) {
	buf, err := d.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + "/Params",
		Size:  UniformBlockSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create particle params buffer: %w", err)
	}
	m := &WgpuMaterial{buf: buf, blend: blend}
	d.materials = append(d.materials, m)
	return m, nil
}

func (d *WgpuDevice) DrawIndexed(vb particle.VertexBuffer, ib particle.IndexBuffer, mat particle.Material, firstIndex, indexCount int) error {
	if d.pass == nil {
		return ErrNoRenderPass
	}
	wvb, ok := vb.(*WgpuVertexBuffer)
	if !ok {
		return fmt.Errorf("gpu: foreign vertex buffer %T", vb)
	}
	wib, ok := ib.(*WgpuIndexBuffer)
	if !ok {
		return fmt.Errorf("gpu: foreign index buffer %T", ib)
	}
	wm, ok := mat.(*WgpuMaterial)
	if !ok {
		return fmt.Errorf("gpu: foreign material %T", mat)
	}

	if wm.Dirty() {
		if err := d.Queue.WriteBuffer(wm.buf, 0, wm.Bytes()); err != nil {
			return fmt.Errorf("gpu: write particle params: %w", err)
		}
		wm.ClearDirty()
	}

	if pipeline, ok := d.pipelines[wm.blend]; ok {
		if wm.bindGroup == nil {
			bg, err := d.createBindGroup(pipeline, wm)
			if err != nil {
				return err
			}
			wm.bindGroup = bg
		}
		d.pass.SetPipeline(pipeline)
		d.pass.SetBindGroup(0, wm.bindGroup, nil)
	}

	d.pass.SetVertexBuffer(0, wvb.buf, 0, wgpu.WholeSize)
	d.pass.SetIndexBuffer(wib.buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	d.pass.DrawIndexed(uint32(indexCount), 1, uint32(firstIndex), 0, 0)
	return nil
}

func (d *WgpuDevice) createBindGroup(pipeline *wgpu.RenderPipeline, m *WgpuMaterial) (*wgpu.BindGroup, error) {
	entries := []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: m.buf, Size: wgpu.WholeSize},
	}
	if view, ok := d.textures[m.Texture(core.ParamTexture)]; ok {
		entries = append(entries, wgpu.BindGroupEntry{Binding: 1, TextureView: view, Size: wgpu.WholeSize})
		if d.Sampler != nil {
			entries = append(entries, wgpu.BindGroupEntry{Binding: 2, Sampler: d.Sampler, Size: wgpu.WholeSize})
		}
	}

	layout := pipeline.GetBindGroupLayout(0)
	defer layout.Release()

	bg, err := d.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "ParticleParams",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create particle bind group: %w", err)
	}
	return bg, nil
}
