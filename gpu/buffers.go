package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"
)

// SafeBufferSizeLimit guards against runaway growth requests -- particle
// counts are config-bounded, but a buggy resize should warn loudly rather
// than silently allocate gigabytes.
const SafeBufferSizeLimit = 1 << 30

// Epoch tags a generation of device-resident resources. Renderers compare
// their cached epoch against Buffers.Epoch each frame and rebind on a
// bounds/particle-count driven reset (spec §9's cyclic-reference note on
// renderer/solver rebinding).
type Epoch = uuid.UUID

// Buffers owns every storage buffer and texture the SPH/foam/density compute
// passes and all four renderer strategies share, mirroring the teacher's
// GpuBufferManager: callers hold onto *Buffers, size resources through the
// Ensure* methods and upload contents via Device.WriteBuffer rather than
// recreating resources themselves.
type Buffers struct {
	device *Device

	Epoch Epoch

	PositionBuf     *wgpu.Buffer
	VelocityBuf     *wgpu.Buffer
	PredictedPosBuf *wgpu.Buffer
	DensityBuf      *wgpu.Buffer
	NearDensityBuf  *wgpu.Buffer

	CellKeyBuf    *wgpu.Buffer
	CellCountBuf  *wgpu.Buffer
	CellOffsetBuf *wgpu.Buffer
	PermutationBuf *wgpu.Buffer
	CellCursorBuf  *wgpu.Buffer

	// SortedPositionBuf/SortedVelocityBuf are the scatter pass's destination
	// arrays (spec §4.C step 3); density/pressure/viscosity/integrate all
	// read and write through these, not the pre-sort Position/VelocityBuf.
	SortedPositionBuf *wgpu.Buffer
	SortedVelocityBuf *wgpu.Buffer
	// VelocityScratchBuf is the viscosity pass's ping-pong target --
	// velocityOut is written while velocityIn is still being read by other
	// invocations in the same dispatch.
	VelocityScratchBuf *wgpu.Buffer

	FoamBuf       *wgpu.Buffer
	RingCursorBuf *wgpu.Buffer

	DensityVolumeAccumBuf *wgpu.Buffer
	DensityVolumeTexture  *wgpu.Texture
	DensityVolumeView     *wgpu.TextureView

	// GridParamsBuf is shared by keypass/density/pressure/viscosity: all four
	// embed an identical GridParams struct and only need the grid layout
	// re-uploaded when the grid itself is rebuilt, so one buffer is safe.
	GridParamsBuf *wgpu.Buffer

	// SimParamsBuf is intentionally NOT shared across stages: each of
	// density/pressure/viscosity/integrate defines its own distinct SimParams
	// struct, and all four stages execute within the same submitted command
	// buffer, so reusing one buffer across them would let the last WriteBuffer
	// call clobber the bytes an earlier stage's dispatch still needs.
	DensityParamsBuf   *wgpu.Buffer
	PressureParamsBuf  *wgpu.Buffer
	ViscosityParamsBuf *wgpu.Buffer
	IntegrateParamsBuf *wgpu.Buffer
	ObstacleParamsBuf  *wgpu.Buffer
	VolumeParamsBuf    *wgpu.Buffer

	// Foam's three stages are likewise distinct structs, each its own buffer.
	FoamSpawnParamsBuf    *wgpu.Buffer
	FoamClassifyParamsBuf *wgpu.Buffer
	FoamIntegrateParamsBuf *wgpu.Buffer

	CameraBuf *wgpu.Buffer
}

// NewBuffers constructs an empty Buffers bound to device, tagged with a
// fresh epoch.
func NewBuffers(device *Device) *Buffers {
	return &Buffers{device: device, Epoch: uuid.New()}
}

// Reset retags Buffers with a new epoch without releasing existing device
// resources -- callers resize/rebuild lazily via ensureBuffer on the next
// EnsureParticleCapacity call, matching the teacher's ensureBuffer's
// "grow on demand" idiom rather than eagerly reallocating on every reset.
func (b *Buffers) Reset() {
	b.Epoch = uuid.New()
}

// EnsureParticleCapacity grows the per-particle buffers to hold count
// particles, following the teacher's ensureBuffer geometric-growth and
// always-CopySrc|CopyDst contract.
func (b *Buffers) EnsureParticleCapacity(count int) error {
	stride := uint64(3 * 4) // vec3<f32>
	size := uint64(count) * stride

	if err := b.ensureBuffer("PositionBuf", &b.PositionBuf, size, wgpu.BufferUsageStorage); err != nil {
		return err
	}
	if err := b.ensureBuffer("VelocityBuf", &b.VelocityBuf, size, wgpu.BufferUsageStorage); err != nil {
		return err
	}
	if err := b.ensureBuffer("PredictedPosBuf", &b.PredictedPosBuf, size, wgpu.BufferUsageStorage); err != nil {
		return err
	}
	if err := b.ensureBuffer("DensityBuf", &b.DensityBuf, uint64(count)*4, wgpu.BufferUsageStorage); err != nil {
		return err
	}
	if err := b.ensureBuffer("NearDensityBuf", &b.NearDensityBuf, uint64(count)*4, wgpu.BufferUsageStorage); err != nil {
		return err
	}
	if err := b.ensureBuffer("CellKeyBuf", &b.CellKeyBuf, uint64(count)*4, wgpu.BufferUsageStorage); err != nil {
		return err
	}
	if err := b.ensureBuffer("PermutationBuf", &b.PermutationBuf, uint64(count)*4, wgpu.BufferUsageStorage); err != nil {
		return err
	}
	if err := b.ensureBuffer("SortedPositionBuf", &b.SortedPositionBuf, size, wgpu.BufferUsageStorage); err != nil {
		return err
	}
	if err := b.ensureBuffer("SortedVelocityBuf", &b.SortedVelocityBuf, size, wgpu.BufferUsageStorage); err != nil {
		return err
	}
	return b.ensureBuffer("VelocityScratchBuf", &b.VelocityScratchBuf, size, wgpu.BufferUsageStorage)
}

// EnsureCellOffsetCapacity grows the prefix-sum cell-offset/count/cursor
// buffers to hold cellCount entries -- the three arrays the counting sort's
// rank+start protocol shares across the key/scan/scatter passes.
func (b *Buffers) EnsureCellOffsetCapacity(cellCount int) error {
	if err := b.ensureBuffer("CellOffsetBuf", &b.CellOffsetBuf, uint64(cellCount)*4, wgpu.BufferUsageStorage); err != nil {
		return err
	}
	if err := b.ensureBuffer("CellCountBuf", &b.CellCountBuf, uint64(cellCount)*4, wgpu.BufferUsageStorage); err != nil {
		return err
	}
	return b.ensureBuffer("CellCursorBuf", &b.CellCursorBuf, uint64(cellCount)*4, wgpu.BufferUsageStorage)
}

// EnsureUniform sizes (but does not populate) a uniform buffer to hold
// sizeBytes -- callers upload content afterwards via Device.WriteBuffer.
// Kept generic rather than one method per uniform since every compute
// stage's params struct is a distinct fixed-size layout known by its
// packing function, not something this package needs to special-case.
func (b *Buffers) EnsureUniform(buf **wgpu.Buffer, label string, sizeBytes int) error {
	return b.ensureBuffer(label, buf, uint64(sizeBytes), wgpu.BufferUsageUniform)
}

// EnsureFoamCapacity sizes the foam ring buffer to hold capacity particles.
func (b *Buffers) EnsureFoamCapacity(capacity int) error {
	// pos, vel, lifetime, scale, state, hysteresis: WGSL aligns each vec3 to
	// 16 bytes and rounds the FoamParticle struct up to 48.
	const foamParticleStride = 48
	if err := b.ensureBuffer("FoamBuf", &b.FoamBuf, uint64(capacity)*foamParticleStride, wgpu.BufferUsageStorage); err != nil {
		return err
	}
	return b.ensureBuffer("RingCursorBuf", &b.RingCursorBuf, 4, wgpu.BufferUsageStorage)
}

// EnsureDensityVolumeCapacity (re)creates the density volume's fixed-point
// accumulator and its resolved r16float storage texture at the given voxel
// resolution (spec §4.E). The texture is always fully recreated on a
// resolution change since wgpu textures, unlike buffers, cannot be resized
// in place.
func (b *Buffers) EnsureDensityVolumeCapacity(res [3]int) error {
	voxelCount := res[0] * res[1] * res[2]
	if err := b.ensureBuffer("DensityVolumeAccumBuf", &b.DensityVolumeAccumBuf, uint64(voxelCount)*4, wgpu.BufferUsageStorage); err != nil {
		return err
	}

	if b.DensityVolumeTexture != nil {
		b.DensityVolumeTexture.Release()
	}
	tex, err := b.device.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "density-volume",
		Size: wgpu.Extent3D{
			Width:              uint32(res[0]),
			Height:             uint32(res[1]),
			DepthOrArrayLayers: uint32(res[2]),
		},
		Dimension: wgpu.TextureDimension3D,
		Format:    wgpu.TextureFormatR16Float,
		Usage:     wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return fmt.Errorf("gpu: create density volume texture: %w", err)
	}
	b.DensityVolumeTexture = tex
	b.DensityVolumeView = tex.CreateView(nil)
	return nil
}

func (b *Buffers) ensureBuffer(name string, buf **wgpu.Buffer, neededSize uint64, usage wgpu.BufferUsage) error {
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}
	usage = usage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc

	current := *buf
	if current != nil && current.GetSize() >= neededSize {
		return nil
	}

	newSize := neededSize
	if current != nil {
		growth := uint64(float64(current.GetSize()) * 1.5)
		if growth > newSize {
			newSize = growth
		}
	}
	if newSize > SafeBufferSizeLimit {
		return fmt.Errorf("gpu: buffer %s requested size %d exceeds safety limit %d", name, newSize, SafeBufferSizeLimit)
	}

	newBuf, err := b.device.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            name,
		Size:             newSize,
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return fmt.Errorf("gpu: create buffer %s: %w", name, err)
	}
	if current != nil {
		current.Release()
	}
	*buf = newBuf
	return nil
}

// Destroy releases every owned buffer and texture.
func (b *Buffers) Destroy() {
	for _, buf := range []*wgpu.Buffer{
		b.PositionBuf, b.VelocityBuf, b.PredictedPosBuf, b.DensityBuf, b.NearDensityBuf,
		b.CellKeyBuf, b.CellCountBuf, b.CellOffsetBuf, b.PermutationBuf, b.CellCursorBuf,
		b.SortedPositionBuf, b.SortedVelocityBuf, b.VelocityScratchBuf, b.FoamBuf, b.RingCursorBuf,
		b.DensityVolumeAccumBuf, b.GridParamsBuf,
		b.DensityParamsBuf, b.PressureParamsBuf, b.ViscosityParamsBuf, b.IntegrateParamsBuf,
		b.ObstacleParamsBuf, b.VolumeParamsBuf,
		b.FoamSpawnParamsBuf, b.FoamClassifyParamsBuf, b.FoamIntegrateParamsBuf,
		b.CameraBuf,
	} {
		if buf != nil {
			buf.Release()
		}
	}
	if b.DensityVolumeTexture != nil {
		b.DensityVolumeTexture.Release()
	}
}
