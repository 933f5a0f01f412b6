package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"SignalBench/internal/experiment"
	"SignalBench/internal/model"
)

// SaveJSON writes v as indented JSON, creating the parent directory.
func SaveJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create artifact dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadExperiment reads an experiment artifact written by SaveJSON.
func LoadExperiment(path string) (*model.ExperimentResult, error) {
	var res model.ExperimentResult
	if err := loadJSON(path, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// LoadCalibration reads a calibration artifact written by SaveJSON.
func LoadCalibration(path string) (*experiment.Calibration, error) {
	var cal experiment.Calibration
	if err := loadJSON(path, &cal); err != nil {
		return nil, err
	}
	return &cal, nil
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// ArtifactName builds a file-system safe artifact name from a label and a short id.
func ArtifactName(kind, label, id string) string {
	safe := make([]rune, 0, len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			safe = append(safe, r)
		default:
			safe = append(safe, '_')
		}
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s_%s_%s.json", kind, string(safe), id)
}
