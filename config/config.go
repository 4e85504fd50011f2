// Package config loads and validates the simulation's config value bag (spec
// §6 "External Interfaces" / §7 "Configuration errors"). It is the single
// place non-positive radii, empty spawn regions, or negative densities are
// rejected -- they must never reach the compute pipelines.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ObstacleShape mirrors spec §6 obstacleShape ∈ {box, sphere}.
type ObstacleShape string

const (
	ObstacleBox    ObstacleShape = "box"
	ObstacleSphere ObstacleShape = "sphere"
)

// SpawnRegion is one axis-aligned spawn box (spec §4.A).
type SpawnRegion struct {
	Center [3]float32 `mapstructure:"center" yaml:"center"`
	Size   [3]float32 `mapstructure:"size" yaml:"size"`
}

// Config is the recognized option bag of spec §6, flattened into one struct
// so it round-trips cleanly through viper/yaml and through live reload.
type Config struct {
	Gravity float32 `mapstructure:"gravity" yaml:"gravity"`

	SmoothingRadius       float32 `mapstructure:"smoothingRadius" yaml:"smoothingRadius"`
	TargetDensity         float32 `mapstructure:"targetDensity" yaml:"targetDensity"`
	PressureMultiplier    float32 `mapstructure:"pressureMultiplier" yaml:"pressureMultiplier"`
	NearPressureMultiplier float32 `mapstructure:"nearPressureMultiplier" yaml:"nearPressureMultiplier"`
	ViscosityStrength     float32 `mapstructure:"viscosityStrength" yaml:"viscosityStrength"`

	TimeScale          float32 `mapstructure:"timeScale" yaml:"timeScale"`
	MaxTimestepFPS     float32 `mapstructure:"maxTimestepFPS" yaml:"maxTimestepFPS"`
	IterationsPerFrame int     `mapstructure:"iterationsPerFrame" yaml:"iterationsPerFrame"`

	BoundsSize    [3]float32 `mapstructure:"boundsSize" yaml:"boundsSize"`
	BoundsPadding float32    `mapstructure:"boundsPadding" yaml:"boundsPadding"`

	ObstacleCentre   [3]float32    `mapstructure:"obstacleCentre" yaml:"obstacleCentre"`
	ObstacleSize     [3]float32    `mapstructure:"obstacleSize" yaml:"obstacleSize"`
	ObstacleRadius   float32       `mapstructure:"obstacleRadius" yaml:"obstacleRadius"`
	ObstacleShape    ObstacleShape `mapstructure:"obstacleShape" yaml:"obstacleShape"`
	ObstacleRotation [4]float32    `mapstructure:"obstacleRotation" yaml:"obstacleRotation"` // quaternion, metadata only (see DESIGN.md)
	ObstacleEnabled  bool          `mapstructure:"obstacleEnabled" yaml:"obstacleEnabled"`

	CollisionDamping float32 `mapstructure:"collisionDamping" yaml:"collisionDamping"`

	SpawnDensity    float32       `mapstructure:"spawnDensity" yaml:"spawnDensity"`
	SpawnRegions    []SpawnRegion `mapstructure:"spawnRegions" yaml:"spawnRegions"`
	InitialVelocity [3]float32    `mapstructure:"initialVelocity" yaml:"initialVelocity"`
	JitterStrength  float32       `mapstructure:"jitterStrength" yaml:"jitterStrength"`
	Seed            uint32        `mapstructure:"seed" yaml:"seed"`

	ParticleRadius float32 `mapstructure:"particleRadius" yaml:"particleRadius"`

	InteractionRadius   float32 `mapstructure:"interactionRadius" yaml:"interactionRadius"`
	InteractionStrength float32 `mapstructure:"interactionStrength" yaml:"interactionStrength"`

	DensityTextureRes int `mapstructure:"densityTextureRes" yaml:"densityTextureRes"`

	Mode2D    bool    `mapstructure:"mode2D" yaml:"mode2D"`
	FlipRatio float32 `mapstructure:"flipRatio" yaml:"flipRatio"`

	UseLegacyHashGrid bool `mapstructure:"useLegacyHashGrid" yaml:"useLegacyHashGrid"`

	MarchingCubes MarchingCubesConfig `mapstructure:"marchingCubes" yaml:"marchingCubes"`
	Raymarch      RaymarchConfig      `mapstructure:"raymarch" yaml:"raymarch"`
	ScreenSpace   ScreenSpaceConfig   `mapstructure:"screenSpace" yaml:"screenSpace"`
	Environment   EnvironmentConfig   `mapstructure:"environment" yaml:"environment"`
	Foam          FoamConfig          `mapstructure:"foam" yaml:"foam"`
}

// MarchingCubesConfig is the marching-cubes renderer subsection.
type MarchingCubesConfig struct {
	IsoLevel     float32    `mapstructure:"isoLevel" yaml:"isoLevel"`
	SurfaceColor [3]float32 `mapstructure:"surfaceColor" yaml:"surfaceColor"`
}

// RaymarchConfig is the raymarch renderer subsection.
type RaymarchConfig struct {
	RenderScale        float32    `mapstructure:"renderScale" yaml:"renderScale"`
	StepSize           float32    `mapstructure:"stepSize" yaml:"stepSize"`
	MaxSteps           int        `mapstructure:"maxSteps" yaml:"maxSteps"`
	Extinction         [3]float32 `mapstructure:"extinction" yaml:"extinction"`
	IndexOfRefraction  float32    `mapstructure:"indexOfRefraction" yaml:"indexOfRefraction"`
	NumRefractions     int        `mapstructure:"numRefractions" yaml:"numRefractions"`
}

// ScreenSpaceConfig is the screen-space surface renderer subsection.
type ScreenSpaceConfig struct {
	Extinction        [3]float32 `mapstructure:"extinction" yaml:"extinction"`
	RefractionStrength float32   `mapstructure:"refractionStrength" yaml:"refractionStrength"`
}

// FoamConfig tunes the whitewater lifecycle (spec §4.F).
type FoamConfig struct {
	Capacity           int     `mapstructure:"capacity" yaml:"capacity"`
	SpawnRate          float32 `mapstructure:"spawnRate" yaml:"spawnRate"`
	EnergyMin          float32 `mapstructure:"energyMin" yaml:"energyMin"`
	EnergyMax          float32 `mapstructure:"energyMax" yaml:"energyMax"`
	LifetimeMin        float32 `mapstructure:"lifetimeMin" yaml:"lifetimeMin"`
	LifetimeMax        float32 `mapstructure:"lifetimeMax" yaml:"lifetimeMax"`
	BubbleScale        float32 `mapstructure:"bubbleScale" yaml:"bubbleScale"`
	BuoyancyStrength   float32 `mapstructure:"buoyancyStrength" yaml:"buoyancyStrength"`
	AdvectionRate      float32 `mapstructure:"advectionRate" yaml:"advectionRate"`
	ClassifyHysteresis int     `mapstructure:"classifyHysteresis" yaml:"classifyHysteresis"`
	DensityMin         float32 `mapstructure:"densityMin" yaml:"densityMin"`
	DensityMax         float32 `mapstructure:"densityMax" yaml:"densityMax"`
	PreserveRate       float32 `mapstructure:"preserveRate" yaml:"preserveRate"`
}

// EnvironmentConfig tunes the shared background sampler (spec §4.G, §6).
type EnvironmentConfig struct {
	TileColorA  [3]float32 `mapstructure:"tileColorA" yaml:"tileColorA"`
	TileColorB  [3]float32 `mapstructure:"tileColorB" yaml:"tileColorB"`
	DirToSun    [3]float32 `mapstructure:"dirToSun" yaml:"dirToSun"`
	SkyColorTop [3]float32 `mapstructure:"skyColorTop" yaml:"skyColorTop"`
	SkyColorBot [3]float32 `mapstructure:"skyColorBot" yaml:"skyColorBot"`
	Exposure    float32    `mapstructure:"exposure" yaml:"exposure"`
	Brightness  float32    `mapstructure:"brightness" yaml:"brightness"`
	Saturation  float32    `mapstructure:"saturation" yaml:"saturation"`
}

// Default returns the baseline config used when no file is supplied.
func Default() *Config {
	return &Config{
		Gravity:                10,
		SmoothingRadius:        0.35,
		TargetDensity:          55,
		PressureMultiplier:     500,
		NearPressureMultiplier: 18,
		ViscosityStrength:      0.06,
		TimeScale:              1,
		MaxTimestepFPS:         60,
		IterationsPerFrame:     3,
		BoundsSize:             [3]float32{20, 20, 20},
		BoundsPadding:          0.1,
		ObstacleShape:          ObstacleBox,
		CollisionDamping:       0.7,
		SpawnDensity:           46,
		SpawnRegions:           []SpawnRegion{{Center: [3]float32{0, 0, 0}, Size: [3]float32{6, 6, 6}}},
		JitterStrength:         0.01,
		Seed:                   1,
		ParticleRadius:         0.08,
		InteractionRadius:      3,
		InteractionStrength:    50,
		DensityTextureRes:      128,
		MarchingCubes: MarchingCubesConfig{
			IsoLevel:     0.5,
			SurfaceColor: [3]float32{0.1, 0.5, 0.9},
		},
		Raymarch: RaymarchConfig{
			RenderScale:       0.5,
			StepSize:          0.05,
			MaxSteps:          128,
			Extinction:        [3]float32{0.4, 0.1, 0.05},
			IndexOfRefraction: 1.33,
			NumRefractions:    2,
		},
		ScreenSpace: ScreenSpaceConfig{
			Extinction:         [3]float32{0.4, 0.1, 0.05},
			RefractionStrength: 1,
		},
		Foam: FoamConfig{
			Capacity:           65536,
			SpawnRate:          1000,
			EnergyMin:          2,
			EnergyMax:          12,
			LifetimeMin:        0.5,
			LifetimeMax:        2.5,
			BubbleScale:        0.3,
			BuoyancyStrength:   0.6,
			AdvectionRate:      1.0,
			ClassifyHysteresis: 3,
			DensityMin:         8,
			DensityMax:         24,
			PreserveRate:       0.4,
		},
		Environment: EnvironmentConfig{
			TileColorA:  [3]float32{0.85, 0.85, 0.85},
			TileColorB:  [3]float32{0.6, 0.6, 0.6},
			DirToSun:    [3]float32{0.3, 0.8, 0.2},
			SkyColorTop: [3]float32{0.3, 0.55, 0.95},
			SkyColorBot: [3]float32{0.9, 0.95, 1.0},
			Exposure:    1,
			Brightness:  1,
			Saturation:  1,
		},
	}
}

// ValidationError aggregates every violation found, rather than stopping at
// the first -- callers get a complete picture before anything reaches the
// compute pipelines (spec §7).
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s", strings.Join(e.Problems, "; "))
}

// Validate rejects configuration errors (spec §7): non-positive radius,
// empty spawn regions, negative density, and other structurally-impossible
// values. Never called from the hot path -- only at intake/reload.
func Validate(c *Config) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.SmoothingRadius <= 0 {
		add("smoothingRadius must be > 0, got %v", c.SmoothingRadius)
	}
	if c.ParticleRadius <= 0 {
		add("particleRadius must be > 0, got %v", c.ParticleRadius)
	}
	if c.TargetDensity < 0 {
		add("targetDensity must be >= 0, got %v", c.TargetDensity)
	}
	if c.SpawnDensity <= 0 {
		add("spawnDensity must be > 0, got %v", c.SpawnDensity)
	}
	if len(c.SpawnRegions) == 0 {
		add("spawnRegions must not be empty")
	}
	for i, r := range c.SpawnRegions {
		if r.Size[0] <= 0 || r.Size[1] <= 0 || r.Size[2] <= 0 {
			add("spawnRegions[%d].size must be positive on every axis, got %v", i, r.Size)
		}
	}
	if c.BoundsSize[0] <= 0 || c.BoundsSize[1] <= 0 || c.BoundsSize[2] <= 0 {
		add("boundsSize must be positive on every axis, got %v", c.BoundsSize)
	}
	if c.CollisionDamping < 0 || c.CollisionDamping > 1 {
		add("collisionDamping must be in [0,1], got %v", c.CollisionDamping)
	}
	if c.IterationsPerFrame <= 0 {
		add("iterationsPerFrame must be > 0, got %v", c.IterationsPerFrame)
	}
	if c.MaxTimestepFPS <= 0 {
		add("maxTimestepFPS must be > 0, got %v", c.MaxTimestepFPS)
	}
	if c.ObstacleEnabled {
		switch c.ObstacleShape {
		case ObstacleBox:
			if c.ObstacleSize[0] <= 0 || c.ObstacleSize[1] <= 0 || c.ObstacleSize[2] <= 0 {
				add("obstacleSize must be positive on every axis when obstacleShape=box")
			}
		case ObstacleSphere:
			if c.ObstacleRadius <= 0 {
				add("obstacleRadius must be > 0 when obstacleShape=sphere")
			}
		default:
			add("obstacleShape must be one of {box, sphere}, got %q", c.ObstacleShape)
		}
	}
	if c.DensityTextureRes <= 0 {
		add("densityTextureRes must be > 0, got %v", c.DensityTextureRes)
	}
	if c.Foam.Capacity <= 0 {
		add("foam.capacity must be > 0, got %v", c.Foam.Capacity)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Loader wraps viper so the config bag can be read from YAML, watched for
// live edits (fsnotify), and re-validated on every change before being
// handed to the simulation.
type Loader struct {
	v        *viper.Viper
	onChange func(*Config)
}

// NewLoader builds a Loader rooted at path, pre-seeded with Default()'s
// values so any field the file omits still has a sane value.
func NewLoader(path string) (*Loader, error) {
	v := viper.New()
	v.SetConfigFile(path)

	def := Default()
	defBytes, err := yaml.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal defaults: %w", err)
	}
	defaults := viper.New()
	defaults.SetConfigType("yaml")
	if err := defaults.ReadConfig(strings.NewReader(string(defBytes))); err != nil {
		return nil, fmt.Errorf("seed defaults: %w", err)
	}
	for _, key := range defaults.AllKeys() {
		v.SetDefault(key, defaults.Get(key))
	}

	return &Loader{v: v}, nil
}

// Load reads the config file, decodes it into a Config, and validates it.
// On validation failure it returns the *ValidationError; the caller decides
// whether that is fatal (startup) or merely logged (live reload).
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := l.v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Watch starts hot-reloading: on every file change, the config is reloaded
// and re-validated; onChange is only invoked when validation passes, so an
// in-progress edit that leaves the file momentarily invalid never reaches
// the live simulation state.
func (l *Loader) Watch(onChange func(*Config)) {
	l.onChange = onChange
	l.v.OnConfigChange(func(_ fsnotify.Event) {
		c, err := l.Load()
		if err != nil {
			return
		}
		if l.onChange != nil {
			l.onChange(c)
		}
	})
	l.v.WatchConfig()
}

// WriteDefault writes the baseline config to path as YAML, for `fluidkit
// config init`-style bootstrapping.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
