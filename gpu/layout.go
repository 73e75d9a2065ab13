package gpu

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/particles/core"
)

func parseFormat(name string) (wgpu.VertexFormat, error) {
	switch name {
	case "float32":
		return wgpu.VertexFormatFloat32, nil
	case "float32x2":
		return wgpu.VertexFormatFloat32x2, nil
	case "float32x3":
		return wgpu.VertexFormatFloat32x3, nil
	case "float32x4":
		return wgpu.VertexFormatFloat32x4, nil
	case "sint16x2":
		return wgpu.VertexFormatSint16x2, nil
	case "unorm8x4":
		return wgpu.VertexFormatUnorm8x4, nil
	case "uint32":
		return wgpu.VertexFormatUint32, nil
	default:
		return 0, fmt.Errorf("unsupported vertex layout format: %q", name)
	}
}

// VertexBufferLayout derives the vertex attributes of a struct from its
// `gekko:"layout"` fields. Untagged fields still advance the offset.
func VertexBufferLayout(vertexType any) (wgpu.VertexBufferLayout, error) {
	t := reflect.TypeOf(vertexType)
	if t == nil || t.Kind() != reflect.Struct {
		return wgpu.VertexBufferLayout{}, fmt.Errorf("vertex must be a struct, got %v", t)
	}

	var attributes []wgpu.VertexAttribute
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("gekko") != "layout" {
			continue
		}
		format, err := parseFormat(field.Tag.Get("format"))
		if err != nil {
			return wgpu.VertexBufferLayout{}, fmt.Errorf("field %s: %w", field.Name, err)
		}
		location, err := strconv.Atoi(field.Tag.Get("location"))
		if err != nil {
			return wgpu.VertexBufferLayout{}, fmt.Errorf("field %s: bad location: %w", field.Name, err)
		}
		attributes = append(attributes, wgpu.VertexAttribute{
			ShaderLocation: uint32(location),
			Offset:         uint64(field.Offset),
			Format:         format,
		})
	}

	return wgpu.VertexBufferLayout{
		ArrayStride: uint64(t.Size()),
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attributes,
	}, nil
}

// ParticleVertexLayout is the layout of core.ParticleVertex.
func ParticleVertexLayout() (wgpu.VertexBufferLayout, error) {
	return VertexBufferLayout(core.ParticleVertex{})
}

// BlendStateFor maps a particle blend mode to a color target blend state.
func BlendStateFor(mode core.BlendMode) *wgpu.BlendState {
	var src, dst wgpu.BlendFactor
	switch mode {
	case core.BlendAdditive:
		src, dst = wgpu.BlendFactorSrcAlpha, wgpu.BlendFactorOne
	case core.BlendAlpha:
		src, dst = wgpu.BlendFactorOne, wgpu.BlendFactorOneMinusSrcAlpha
	default:
		src, dst = wgpu.BlendFactorSrcAlpha, wgpu.BlendFactorOneMinusSrcAlpha
	}
	component := wgpu.BlendComponent{
		SrcFactor: src,
		DstFactor: dst,
		Operation: wgpu.BlendOperationAdd,
	}
	return &wgpu.BlendState{Color: component, Alpha: component}
}
