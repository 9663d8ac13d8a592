package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Row is one logged tick of the run.
type Row struct {
	Time     float64 `json:"time"`
	Position float64 `json:"position"`
	SpeedMph float64 `json:"speed_mph"`

	AscMode     string `json:"asc_mode"`
	AcsesMode   string `json:"acses_mode"`
	AlerterMode string `json:"alerter_mode"`

	Brake         string  `json:"brake"`
	BrakeFraction float64 `json:"brake_fraction"`
	Throttle      float64 `json:"throttle"`
	DynamicBrake  float64 `json:"dynamic_brake"`
	AirBrake      float64 `json:"air_brake"`
	Latched       bool    `json:"latched"`

	Alarm        bool     `json:"alarm"`
	Overspeed    bool     `json:"overspeed"`
	PositiveStop bool     `json:"positive_stop"`
	Aspect       string   `json:"aspect"`
	TrackSpeed   *float64 `json:"track_speed_mph,omitempty"`
}

// RunLog is the complete output of one simulation run.
type RunLog struct {
	RunID string `json:"run_id"`
	Rows  []Row  `json:"rows"`
}

// WriteFile writes the log as indented JSON. A path ending in .zst is
// compressed with zstandard.
func (l *RunLog) WriteFile(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run log: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if strings.HasSuffix(path, ".zst") {
		zw, err := zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("opening zstd writer: %w", err)
		}
		if _, err := zw.Write(data); err != nil {
			zw.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("finishing %s: %w", path, err)
		}
		return nil
	}

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadLogFile reads a log written by WriteFile, transparently decompressing
// .zst files.
func ReadLogFile(path string) (*RunLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if strings.HasSuffix(path, ".zst") {
		zr, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("opening zstd reader: %w", err)
		}
		defer zr.Close()
		data, err = zr.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing %s: %w", path, err)
		}
	}

	var l RunLog
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &l, nil
}
