package pipeline_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

const transformsLabel = "default_object:default_3d_transforms"

func createDefault(t *testing.T, f *fixture, options ...pipeline.PipelineBuilderOption) pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.Create(pipeline.VariantDefaultObject, defaultShaderID, f.scene, f.device, options...)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	t.Cleanup(p.Release)
	return p
}

func TestCreateAllocatesPipelineObjects(t *testing.T) {
	f := newFixture(t, defaultShaders(t))
	p := createDefault(t, f)

	if p.Key() != "default_3d" {
		t.Errorf("Key() = %q, want default_3d", p.Key())
	}
	if p.Label() != "default_object:default_3d" {
		t.Errorf("Label() = %q", p.Label())
	}
	if p.Variant() != pipeline.VariantDefaultObject || p.ShaderID() != defaultShaderID {
		t.Errorf("Variant() = %v, ShaderID() = %q", p.Variant(), p.ShaderID())
	}

	for kind, want := range map[string]int{"shader": 1, "bind_group_layout": 1, "render_pipeline": 1, "sampler": 1} {
		if got := len(f.device.Resources(kind)); got != want {
			t.Errorf("%s resources = %d, want %d", kind, got, want)
		}
	}

	desc := f.device.Resources("render_pipeline")[0].Desc.(gpu.RenderPipelineDescriptor)
	if desc.VertexEntryPoint != "vs_main" || desc.FragmentEntryPoint != "fs_main" {
		t.Errorf("entry points = %q, %q", desc.VertexEntryPoint, desc.FragmentEntryPoint)
	}
	if desc.ColorFormat != f.scene.ColorFormat() {
		t.Errorf("ColorFormat = %v, want %v", desc.ColorFormat, f.scene.ColorFormat())
	}
	if !desc.DepthWriteEnabled || desc.DepthCompare != wgpu.CompareFunctionLess {
		t.Errorf("depth state = %v, %v", desc.DepthWriteEnabled, desc.DepthCompare)
	}
	if desc.CullMode != wgpu.CullModeNone || desc.Topology != wgpu.PrimitiveTopologyTriangleList {
		t.Errorf("primitive state = %v, %v", desc.CullMode, desc.Topology)
	}

	uniform := f.buffer(t, "default_object:default_3d_frame_uniform")
	if uniform.Desc.Size != pipeline.FrameUniformSize {
		t.Errorf("frame uniform size = %d, want %d", uniform.Desc.Size, pipeline.FrameUniformSize)
	}
	if uniform.Desc.Usage&wgpu.BufferUsageUniform == 0 {
		t.Error("frame uniform lacks uniform usage")
	}
	if got := len(f.device.BuffersLabeled(transformsLabel)); got != 0 {
		t.Errorf("transform buffers before first frame = %d, want 0", got)
	}
}

func TestRenderDrawsRoutedObjectsInOneCall(t *testing.T) {
	f := newFixture(t, defaultShaders(t))
	routed := f.addObjects("default_3d", 1)
	f.addObjects("other", 1)
	routed = append(routed, f.addObjects("default_3d", 1)...)
	f.scene.AddLight(light.NewLight(light.WithPosition(1, 2, 3)))
	f.scene.AddLight(light.NewLight(light.WithColor(1, 0, 0), light.WithIntensity(2)))
	f.scene.SetCamera(camera.NewCamera())

	p := createDefault(t, f, pipeline.WithClearColor(wgpu.Color{R: 0.1, G: 0.2, B: 0.3, A: 1}))
	if err := p.Render(f.scene); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	passes := f.device.Passes()
	if len(passes) != 1 {
		t.Fatalf("passes = %d, want 1", len(passes))
	}
	pass := passes[0]
	if !pass.Ended {
		t.Error("pass not ended")
	}
	ca := pass.Desc.ColorAttachments[0]
	if ca.View != f.scene.ColorTarget() || ca.LoadOp != wgpu.LoadOpClear || ca.StoreOp != wgpu.StoreOpStore {
		t.Errorf("color attachment = %+v", ca)
	}
	if ca.ClearValue != (wgpu.Color{R: 0.1, G: 0.2, B: 0.3, A: 1}) {
		t.Errorf("clear color = %+v", ca.ClearValue)
	}
	da := pass.Desc.DepthAttachment
	if da == nil || da.View != f.scene.DepthTarget() || da.DepthLoadOp != wgpu.LoadOpClear || da.DepthStoreOp != wgpu.StoreOpStore || da.DepthClearValue != 1 {
		t.Errorf("depth attachment = %+v", da)
	}

	if len(pass.Draws) != 1 {
		t.Fatalf("draws = %d, want 1", len(pass.Draws))
	}
	draw := pass.Draws[0]
	if draw.InstanceCount != 2 || draw.IndexCount != 36 {
		t.Errorf("draw = %d indices x %d instances, want 36 x 2", draw.IndexCount, draw.InstanceCount)
	}
	if draw.VertexBuffer != f.cube.VertexBuffer() || draw.IndexBuffer != f.cube.IndexBuffer() || draw.IndexFormat != wgpu.IndexFormatUint32 {
		t.Error("draw does not use the first object's mesh")
	}

	transforms := f.buffer(t, transformsLabel)
	if transforms.Desc.Size != 2*pipeline.TransformStride {
		t.Errorf("transform buffer = %d bytes, want %d", transforms.Desc.Size, 2*pipeline.TransformStride)
	}
	got := common.BytesToFloat32s(transforms.Data)
	for i, obj := range routed {
		m := obj.ModelMatrix()
		if !slices.Equal(got[i*16:(i+1)*16], m[:]) {
			t.Errorf("transform %d = %v, want %v", i, got[i*16:(i+1)*16], m)
		}
	}

	u := f.uniformFloats(t)
	if u[3] != 2 {
		t.Errorf("light count = %v, want 2", u[3])
	}
	view, proj := f.scene.Camera().ViewMatrix(), f.scene.Camera().ProjectionMatrix()
	if !slices.Equal(u[4:20], view[:]) || !slices.Equal(u[20:36], proj[:]) {
		t.Error("camera matrices not packed after the header")
	}
	if !slices.Equal(u[36:44], []float32{1, 2, 3, 1, 1, 1, 1, 1}) {
		t.Errorf("light 0 = %v", u[36:44])
	}
	if !slices.Equal(u[44:52], []float32{0, 0, 0, 1, 1, 0, 0, 2}) {
		t.Errorf("light 1 = %v", u[44:52])
	}

	groups := f.device.BindGroups()
	if len(groups) != 1 {
		t.Fatalf("bind groups = %d, want 1", len(groups))
	}
	bg := groups[0]
	if !bg.Released {
		t.Error("bind group not released after submit")
	}
	if e := bg.Entry(5); e == nil || e.Buffer != gpu.DeviceBuffer(transforms) {
		t.Error("binding 5 is not the transform buffer")
	}
	if e := bg.Entry(0); e == nil || e.Buffer.Size() != pipeline.FrameUniformSize {
		t.Error("binding 0 is not the frame uniform")
	}
	if len(f.device.Submitted()) != 1 {
		t.Errorf("submissions = %d, want 1", len(f.device.Submitted()))
	}

	stats := p.Stats()
	if stats.FramesRendered != 1 || stats.ObjectsDrawn != 2 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestTransformBufferGrowsOnce(t *testing.T) {
	f := newFixture(t, defaultShaders(t))
	f.addObjects("default_3d", 1)
	p := createDefault(t, f)

	if err := p.Render(f.scene); err != nil {
		t.Fatalf("frame 1: %v", err)
	}
	first := f.device.BuffersLabeled(transformsLabel)
	if len(first) != 1 || first[0].Desc.Size != pipeline.TransformStride {
		t.Fatalf("frame 1 transform buffers = %d", len(first))
	}

	f.addObjects("default_3d", 4)
	if err := p.Render(f.scene); err != nil {
		t.Fatalf("frame 2: %v", err)
	}
	bufs := f.device.BuffersLabeled(transformsLabel)
	if len(bufs) != 2 {
		t.Fatalf("transform buffers after growth = %d, want 2", len(bufs))
	}
	if !bufs[0].Released {
		t.Error("old transform buffer not released")
	}
	if bufs[1].Released || bufs[1].Desc.Size != 5*pipeline.TransformStride {
		t.Errorf("new transform buffer = %d bytes (released %v), want %d", bufs[1].Desc.Size, bufs[1].Released, 5*pipeline.TransformStride)
	}
	if draws := f.device.Draws(); draws[len(draws)-1].InstanceCount != 5 {
		t.Errorf("instance count = %d, want 5", draws[len(draws)-1].InstanceCount)
	}
}

func TestTransformBufferNeverShrinks(t *testing.T) {
	f := newFixture(t, defaultShaders(t))
	objects := f.addObjects("default_3d", 4)
	p := createDefault(t, f)

	counts := []int{4, 2, 3, 4, 1}
	for frame, n := range counts {
		for i, obj := range objects {
			obj.SetEnabled(i < n)
		}
		if err := p.Render(f.scene); err != nil {
			t.Fatalf("frame %d: %v", frame, err)
		}
		if got := p.Stats().TransformCapacity; got != 4*pipeline.TransformStride {
			t.Errorf("frame %d capacity = %d, want %d", frame, got, 4*pipeline.TransformStride)
		}
	}
	if got := len(f.device.BuffersLabeled(transformsLabel)); got != 1 {
		t.Errorf("transform buffers = %d, want 1", got)
	}
	if got := p.Stats().TransformReallocations; got != 1 {
		t.Errorf("reallocations = %d, want 1", got)
	}
	draws := f.device.Draws()
	for i, n := range counts {
		if draws[i].InstanceCount != uint32(n) {
			t.Errorf("frame %d instance count = %d, want %d", i, draws[i].InstanceCount, n)
		}
	}
}

func TestRenderSkipsWithoutWork(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
	}{
		{"no routed objects", func(f *fixture) { f.addObjects("other", 2) }},
		{"disabled objects", func(f *fixture) {
			for _, obj := range f.addObjects("default_3d", 2) {
				obj.SetEnabled(false)
			}
		}},
		{"no color target", func(f *fixture) {
			f.addObjects("default_3d", 1)
			f.scene.SetTargets(nil, f.scene.DepthTarget())
		}},
		{"no depth target", func(f *fixture) {
			f.addObjects("default_3d", 1)
			f.scene.SetTargets(f.scene.ColorTarget(), nil)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, defaultShaders(t))
			tt.setup(f)
			p := createDefault(t, f)
			writes := len(f.device.Writes())

			if err := p.Render(f.scene); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if got := len(f.device.Encoders()); got != 0 {
				t.Errorf("encoders = %d, want 0", got)
			}
			if got := len(f.device.BindGroups()); got != 0 {
				t.Errorf("bind groups = %d, want 0", got)
			}
			if got := len(f.device.Writes()); got != writes {
				t.Errorf("writes = %d, want %d", got, writes)
			}
			if got := len(f.textures.Requested()); got != 0 {
				t.Errorf("texture requests = %d, want 0", got)
			}
			if s := p.Stats(); s.FramesSkipped != 1 || s.FramesRendered != 0 {
				t.Errorf("Stats() = %+v", s)
			}
		})
	}
}

func TestPipelinesOnlyDrawTheirOwnObjects(t *testing.T) {
	sources := defaultShaders(t)
	sources["shaders/unlit.wgsl"] = sources[defaultShaderID]
	f := newFixture(t, sources)
	f.addObjects("default_3d", 3)
	f.addObjects("unlit", 2)

	lit := createDefault(t, f)
	unlit, err := pipeline.Create(pipeline.VariantDefaultObject, "shaders/unlit.wgsl", f.scene, f.device)
	if err != nil {
		t.Fatalf("Create(unlit) error = %v", err)
	}
	defer unlit.Release()

	for _, p := range []pipeline.Pipeline{lit, unlit} {
		if err := p.Render(f.scene); err != nil {
			t.Fatalf("%s: %v", p.Label(), err)
		}
	}
	draws := f.device.Draws()
	if len(draws) != 2 || draws[0].InstanceCount != 3 || draws[1].InstanceCount != 2 {
		t.Fatalf("draws = %+v", draws)
	}
	if lit.ID() == unlit.ID() {
		t.Error("pipelines share an id")
	}
}

func TestCreateFailures(t *testing.T) {
	const noBindings = `
@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
}
`
	tests := []struct {
		name     string
		shaderID string
		sources  shaderSources
		want     error
	}{
		{"unknown shader", "shaders/missing.wgsl", nil, pipeline.ErrShaderResolution},
		{"unknown include", "bad.wgsl", shaderSources{"bad.wgsl": "//@oxy:include lighting\n"}, pipeline.ErrShaderResolution},
		{"invalid wgsl", "bad.wgsl", shaderSources{"bad.wgsl": "fn broken( {"}, pipeline.ErrPipelineCreation},
		{"missing bindings", "bare.wgsl", shaderSources{"bare.wgsl": noBindings}, pipeline.ErrPipelineCreation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.sources)
			before := len(f.device.Buffers())

			p, err := pipeline.Create(pipeline.VariantDefaultObject, tt.shaderID, f.scene, f.device)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Create() error = %v, want %v", err, tt.want)
			}
			if p != nil {
				t.Error("Create() returned a pipeline with an error")
			}
			if got := len(f.device.Resources("shader")) + len(f.device.Resources("render_pipeline")); got != 0 {
				t.Errorf("device objects created = %d, want 0", got)
			}
			if got := len(f.device.Buffers()); got != before {
				t.Errorf("buffers created = %d", got-before)
			}
		})
	}
}

func TestCreateReleasesPartialObjectsOnDeviceFailure(t *testing.T) {
	for _, op := range []string{gputest.OpCreateRenderPipeline, gputest.OpCreateSampler, gputest.OpCreateBuffer} {
		t.Run(op, func(t *testing.T) {
			f := newFixture(t, defaultShaders(t))
			f.device.FailOn(op, errors.New("device lost"))

			_, err := pipeline.Create(pipeline.VariantDefaultObject, defaultShaderID, f.scene, f.device)
			if !errors.Is(err, pipeline.ErrPipelineCreation) {
				t.Fatalf("Create() error = %v, want ErrPipelineCreation", err)
			}
			for _, kind := range []string{"shader", "bind_group_layout", "render_pipeline", "sampler"} {
				for _, r := range f.device.Resources(kind) {
					if !r.Released {
						t.Errorf("%s %q leaked", kind, r.Label)
					}
				}
			}
		})
	}
}

func TestCreateRejectsBadArguments(t *testing.T) {
	f := newFixture(t, defaultShaders(t))

	if _, err := pipeline.Create(pipeline.VariantUnknown, defaultShaderID, f.scene, f.device); !errors.Is(err, pipeline.ErrUnknownVariant) {
		t.Errorf("unknown variant error = %v", err)
	}
	if _, err := pipeline.Create(pipeline.VariantDefaultObject, defaultShaderID, nil, f.device); !errors.Is(err, pipeline.ErrNilScene) {
		t.Errorf("nil scene error = %v", err)
	}
	if _, err := pipeline.Create(pipeline.VariantDefaultObject, defaultShaderID, f.scene, nil); !errors.Is(err, gpu.ErrNilDevice) {
		t.Errorf("nil device error = %v", err)
	}
	if got := len(f.device.Resources("shader")); got != 0 {
		t.Errorf("shader modules = %d, want 0", got)
	}
}

func TestCreateAsync(t *testing.T) {
	f := newFixture(t, defaultShaders(t))

	p, err := pipeline.CreateAsync(pipeline.VariantDefaultObject, defaultShaderID, f.scene, f.device).Await()
	if err != nil {
		t.Fatalf("CreateAsync() error = %v", err)
	}
	defer p.Release()
	if p.Key() != "default_3d" {
		t.Errorf("Key() = %q", p.Key())
	}

	_, err = pipeline.CreateAsync(pipeline.VariantDefaultObject, "missing.wgsl", f.scene, f.device).Await()
	if !errors.Is(err, pipeline.ErrShaderResolution) {
		t.Errorf("CreateAsync(missing) error = %v", err)
	}
}

func TestRenderResolvesFirstObjectTextures(t *testing.T) {
	f := newFixture(t, defaultShaders(t))
	f.addObjects("default_3d", 1, game_object.WithTexture(scene.TextureDiffuse, "bricks.png"))
	f.addObjects("default_3d", 1, game_object.WithTexture(scene.TextureNormal, "ignored.png"))
	p := createDefault(t, f)

	if err := p.Render(f.scene); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := f.textures.Requested(); !slices.Equal(got, []string{"bricks.png", "", ""}) {
		t.Errorf("requested = %q", got)
	}
	if u := f.uniformFloats(t); !slices.Equal(u[:3], []float32{1, 0, 0}) {
		t.Errorf("texture flags = %v, want [1 0 0]", u[:3])
	}
	bg := f.device.BindGroups()[0]
	if e := bg.Entry(2); e == nil || e.TextureView.(*gputest.Resource).Label != "bricks.png" {
		t.Error("binding 2 is not the diffuse texture")
	}
	if e := bg.Entry(3); e == nil || e.TextureView.(*gputest.Resource).Label != "placeholder" {
		t.Error("binding 3 is not the placeholder")
	}
}

func TestRenderDrawsAReplacementModelWithItsOwnMesh(t *testing.T) {
	f := newFixture(t, defaultShaders(t))
	tri := model.NewModel(
		model.WithName("tri"),
		model.WithVertices([]model.GPUVertex{
			{Position: [3]float32{0, 0, 0}, Normal: [3]float32{0, 0, 1}},
			{Position: [3]float32{1, 0, 0}, Normal: [3]float32{0, 0, 1}},
			{Position: [3]float32{0, 1, 0}, Normal: [3]float32{0, 0, 1}},
		}),
		model.WithIndices([]uint32{0, 1, 2}),
	)
	if err := tri.Upload(f.device); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(tri.Release)
	f.scene.Add(game_object.NewGameObject(
		game_object.WithPipelineKey("default_3d"),
		game_object.WithModel(tri),
		game_object.WithTexture(scene.TextureDiffuse, "tri.png"),
	))
	f.addObjects("other", 2, game_object.WithTexture(scene.TextureDiffuse, "crate.png"))
	p := createDefault(t, f)

	if err := p.Render(f.scene); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	draws := f.device.Draws()
	if len(draws) != 1 {
		t.Fatalf("draws = %d, want 1", len(draws))
	}
	d := draws[0]
	if d.VertexBuffer != tri.VertexBuffer() || d.IndexBuffer != tri.IndexBuffer() || d.IndexCount != 3 || d.InstanceCount != 1 {
		t.Errorf("draw = %d indices x %d instances, want the model's 3 x 1", d.IndexCount, d.InstanceCount)
	}
	if got := f.textures.Requested(); !slices.Equal(got, []string{"tri.png", "", ""}) {
		t.Errorf("requested = %q, want the model's textures", got)
	}
}

func TestRenderTextureFailureRecordsNothing(t *testing.T) {
	f := newFixture(t, defaultShaders(t))
	f.addObjects("default_3d", 1, game_object.WithTexture(scene.TextureSpecular, "missing.png"))
	f.textures.fail["missing.png"] = true
	p := createDefault(t, f)

	err := p.Render(f.scene)
	if !errors.Is(err, pipeline.ErrTextureResolution) {
		t.Fatalf("Render() error = %v, want ErrTextureResolution", err)
	}
	if len(f.device.Passes()) != 0 || len(f.device.Submitted()) != 0 {
		t.Error("failed frame recorded a pass")
	}

	delete(f.textures.fail, "missing.png")
	if err := p.Render(f.scene); err != nil {
		t.Fatalf("Render() after recovery error = %v", err)
	}
}

func TestRenderClampsLights(t *testing.T) {
	f := newFixture(t, defaultShaders(t))
	f.addObjects("default_3d", 1)
	for i := 0; i < 12; i++ {
		f.scene.AddLight(light.NewLight(light.WithPosition(float32(i), 0, 0)))
	}
	p := createDefault(t, f)

	if err := p.Render(f.scene); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	u := f.uniformFloats(t)
	if u[3] != pipeline.MaxLights {
		t.Errorf("light count = %v, want %d", u[3], pipeline.MaxLights)
	}
	if got := p.Stats().LightsDropped; got != 2 {
		t.Errorf("LightsDropped = %d, want 2", got)
	}
	if len(f.device.Draws()) != 1 {
		t.Error("frame with too many lights was not drawn")
	}
}

func TestRenderRequiresUploadedMesh(t *testing.T) {
	f := newFixture(t, defaultShaders(t))
	f.addObjects("default_3d", 1)
	f.cube.Release()
	p := createDefault(t, f)

	if err := p.Render(f.scene); !errors.Is(err, pipeline.ErrMeshNotReady) {
		t.Fatalf("Render() error = %v, want ErrMeshNotReady", err)
	}
	if len(f.device.Passes()) != 0 {
		t.Error("pass recorded without a mesh")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	f := newFixture(t, defaultShaders(t))
	f.addObjects("default_3d", 2)
	p := createDefault(t, f)
	if err := p.Render(f.scene); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	p.Release()
	p.Release()

	for _, kind := range []string{"shader", "bind_group_layout", "render_pipeline", "sampler"} {
		for _, r := range f.device.Resources(kind) {
			if !r.Released {
				t.Errorf("%s %q not released", kind, r.Label)
			}
		}
	}
	for _, label := range []string{transformsLabel, "default_object:default_3d_frame_uniform"} {
		for _, b := range f.device.BuffersLabeled(label) {
			if !b.Released {
				t.Errorf("buffer %q not released", label)
			}
		}
	}
	if err := p.Render(f.scene); !errors.Is(err, pipeline.ErrReleased) {
		t.Errorf("Render() after Release error = %v, want ErrReleased", err)
	}
}
