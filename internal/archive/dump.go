package archive

import (
	"encoding/json"
	"fmt"
	"os"

	"backend-voltride/internal/track"
)

// LoadPoints reads a ride dump: a JSON array of GPS fixes.
func LoadPoints(path string) ([]track.GpsPoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}

	var points []track.GpsPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("parse dump %s: %w", path, err)
	}
	return points, nil
}

// WritePoints writes points as an indented JSON dump.
func WritePoints(path string, points []track.GpsPoint) error {
	data, err := json.MarshalIndent(points, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
