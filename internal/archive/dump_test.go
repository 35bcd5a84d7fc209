package archive

import (
	"os"
	"path/filepath"
	"testing"

	"backend-voltride/internal/track"
)

func TestDumpRoundTrip(t *testing.T) {
	speed := 5.0
	points := []track.GpsPoint{
		{Latitude: -8.65, Longitude: 115.21, Timestamp: 0, Speed: &speed},
		{Latitude: -8.6495, Longitude: 115.21, Timestamp: 1000, Speed: &speed},
	}

	path := filepath.Join(t.TempDir(), "ride.json")
	if err := WritePoints(path, points); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := LoadPoints(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 || loaded[1].Timestamp != 1000 {
		t.Fatalf("unexpected points %+v", loaded)
	}
	if loaded[0].Speed == nil || *loaded[0].Speed != 5 {
		t.Fatalf("speed lost in round trip")
	}
}

func TestLoadPointsMissingFile(t *testing.T) {
	if _, err := LoadPoints(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadPointsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not an array"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadPoints(path); err == nil {
		t.Fatalf("expected error")
	}
}
