package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadCalibration overlays the YAML file at path onto DefaultCalibration.
// Environment references such as ${FACEVERIFY_REQUIRED_SCORE} are expanded
// before parsing. Keys absent from the file keep their defaults.
func LoadCalibration(path string) (Calibration, error) {
	cal := DefaultCalibration()
	if path == "" {
		return cal, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Calibration{}, fmt.Errorf("read calibration: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cal); err != nil {
		return Calibration{}, fmt.Errorf("parse calibration: %w", err)
	}
	if err := cal.Validate(); err != nil {
		return Calibration{}, fmt.Errorf("invalid calibration: %w", err)
	}
	return cal, nil
}
