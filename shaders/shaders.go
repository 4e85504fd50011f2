// Package shaders embeds every WGSL source the GPU-resident simulation and
// renderer pipelines compile, matching the teacher's shaders package --
// one constant per compute or render stage, sourced by go:embed so the
// source ships inside the binary.
package shaders

import (
	_ "embed"
)

//go:embed keypass.wgsl
var KeyPassWGSL string

//go:embed scan.wgsl
var ScanWGSL string

//go:embed scatter.wgsl
var ScatterWGSL string

//go:embed density.wgsl
var DensityWGSL string

//go:embed pressure.wgsl
var PressureWGSL string

//go:embed viscosity.wgsl
var ViscosityWGSL string

//go:embed integrate.wgsl
var IntegrateWGSL string

//go:embed splat_clear.wgsl
var SplatClearWGSL string

//go:embed splat_accumulate.wgsl
var SplatAccumulateWGSL string

//go:embed splat_resolve.wgsl
var SplatResolveWGSL string

//go:embed foam_spawn.wgsl
var FoamSpawnWGSL string

//go:embed foam_classify.wgsl
var FoamClassifyWGSL string

//go:embed foam_integrate.wgsl
var FoamIntegrateWGSL string

//go:embed particles_billboard.wgsl
var ParticlesBillboardWGSL string

//go:embed surface_depth.wgsl
var SurfaceDepthWGSL string

//go:embed surface_smooth.wgsl
var SurfaceSmoothWGSL string

//go:embed surface_thickness.wgsl
var SurfaceThicknessWGSL string

//go:embed surface_normals.wgsl
var SurfaceNormalsWGSL string

//go:embed surface_composite.wgsl
var SurfaceCompositeWGSL string

//go:embed marching_cubes.wgsl
var MarchingCubesWGSL string

//go:embed raymarch.wgsl
var RaymarchWGSL string

//go:embed blit.wgsl
var BlitWGSL string
