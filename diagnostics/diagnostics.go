// Package diagnostics captures per-frame simulation statistics and exports
// them to CSV for the property/scenario test harness (spec §Q). It is debug
// tooling only: the production render loop never reads back GPU buffers for
// this (spec §5 "Foam-spawn read-back deliberately avoided"); diagnostics
// only ever observe the host-side CPU-reference state.
package diagnostics

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/stat"
)

// FrameStats is one frame's snapshot, shaped for gocsv's struct-tag-driven
// marshaling (teacher pack idiom: pthm-soup/telemetry).
type FrameStats struct {
	Frame            int     `csv:"frame"`
	MeanSpeed        float32 `csv:"mean_speed"`
	StdDevSpeed      float32 `csv:"stddev_speed"`
	MeanHeight       float32 `csv:"mean_height"`
	BoundsViolations int     `csv:"bounds_violations"`
	FoamLiveCount    int     `csv:"foam_live_count"`
}

// Capture computes a FrameStats from the current velocity/position arrays
// and a bound for the "left the simulation volume" check.
func Capture(frame int, pos, vel []mgl32.Vec3, boundsHalf [3]float32, foamLiveCount int) FrameStats {
	speeds := make([]float64, len(vel))
	heights := make([]float64, len(pos))
	violations := 0
	for i := range vel {
		speeds[i] = float64(vel[i].Len())
	}
	for i := range pos {
		heights[i] = float64(pos[i][1])
		for axis := 0; axis < 3; axis++ {
			if pos[i][axis] > boundsHalf[axis] || pos[i][axis] < -boundsHalf[axis] {
				violations++
				break
			}
		}
	}

	meanSpeed, stdSpeed := meanStdDev(speeds)
	meanHeight, _ := meanStdDev(heights)

	return FrameStats{
		Frame:            frame,
		MeanSpeed:        float32(meanSpeed),
		StdDevSpeed:      float32(stdSpeed),
		MeanHeight:       float32(meanHeight),
		BoundsViolations: violations,
		FoamLiveCount:    foamLiveCount,
	}
}

// meanStdDev wraps gonum/stat so every statistical computation in this
// package goes through one real numerics library rather than hand-rolled
// variance accumulation.
func meanStdDev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	mean = stat.Mean(values, nil)
	stddev = stat.StdDev(values, nil)
	return mean, stddev
}

// CSVWriter appends FrameStats rows to a CSV file, writing the header only
// on the first record (pthm-soup/telemetry's OutputManager idiom).
type CSVWriter struct {
	file          *os.File
	headerWritten bool
}

// NewCSVWriter creates (or truncates) the file at path.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating diagnostics csv: %w", err)
	}
	return &CSVWriter{file: f}, nil
}

// Write appends one record.
func (w *CSVWriter) Write(s FrameStats) error {
	records := []FrameStats{s}
	if !w.headerWritten {
		if err := gocsv.Marshal(records, w.file); err != nil {
			return fmt.Errorf("writing diagnostics row: %w", err)
		}
		w.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, w.file); err != nil {
		return fmt.Errorf("writing diagnostics row: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (w *CSVWriter) Close() error {
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}
