package main

import (
	"path/filepath"
	"testing"

	"backend-voltride/internal/archive"
	"backend-voltride/internal/track"
)

func writeDump(t *testing.T, name string, n int) string {
	t.Helper()
	points := make([]track.GpsPoint, 0, n)
	lat := -8.65
	for i := 0; i < n; i++ {
		speed := 5.0
		points = append(points, track.GpsPoint{
			Latitude:  lat,
			Longitude: 115.21,
			Timestamp: int64(i * 1000),
			Speed:     &speed,
		})
		lat += 5.0 / 111320
	}

	path := filepath.Join(t.TempDir(), name)
	if err := archive.WritePoints(path, points); err != nil {
		t.Fatalf("write dump: %v", err)
	}
	return path
}

func useTempDB(t *testing.T) string {
	t.Helper()
	old := dbPath
	dbPath = filepath.Join(t.TempDir(), "rides.db")
	t.Cleanup(func() { dbPath = old })
	return dbPath
}

func TestAnalyzeCommand(t *testing.T) {
	dump := writeDump(t, "ride.json", 30)

	cmd := analyzeCmd()
	cmd.SetArgs([]string{dump})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("analyze: %v", err)
	}
}

func TestAnalyzeCommandMissingFile(t *testing.T) {
	cmd := analyzeCmd()
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope.json")})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestAnalyzeCommandTooShort(t *testing.T) {
	dump := writeDump(t, "short.json", 1)

	cmd := analyzeCmd()
	cmd.SetArgs([]string{dump})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for a one-point ride")
	}
}

func TestCompressCommandWritesOutput(t *testing.T) {
	dump := writeDump(t, "ride.json", 30)
	out := filepath.Join(t.TempDir(), "compressed.json")

	cmd := compressCmd()
	cmd.SetArgs([]string{dump, "-o", out})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("compress: %v", err)
	}

	points, err := archive.LoadPoints(out)
	if err != nil {
		t.Fatalf("load output: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("straight line should compress to endpoints, got %d", len(points))
	}
}

func TestIngestAndStats(t *testing.T) {
	db := useTempDB(t)

	first := writeDump(t, "a.json", 30)
	second := writeDump(t, "b.json", 40)

	ingest := ingestCmd()
	ingest.SetArgs([]string{first, second})
	if err := ingest.Execute(); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	store, err := archive.Open(db)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer store.Close()

	entries, err := store.ListRides()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 archived rides, got %d", len(entries))
	}
	if entries[0].Source == "" || entries[0].EcoGrade == "" {
		t.Fatalf("entry missing fields: %+v", entries[0])
	}

	stats := statsCmd()
	stats.SetArgs(nil)
	if err := stats.Execute(); err != nil {
		t.Fatalf("stats: %v", err)
	}
}

func TestIngestSkipsBadFiles(t *testing.T) {
	db := useTempDB(t)

	good := writeDump(t, "good.json", 30)
	missing := filepath.Join(t.TempDir(), "missing.json")

	ingest := ingestCmd()
	ingest.SetArgs([]string{missing, good})
	if err := ingest.Execute(); err != nil {
		t.Fatalf("ingest should keep going past bad files: %v", err)
	}

	store, err := archive.Open(db)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer store.Close()

	entries, err := store.ListRides()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 archived ride, got %d", len(entries))
	}
}

func TestBatteryFlag(t *testing.T) {
	cmd := analyzeCmd()
	if got := batteryFlag(cmd, 0); got != nil {
		t.Fatalf("unset flag should be nil, got %v", *got)
	}

	if err := cmd.Flags().Set("battery", "15"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	got := batteryFlag(cmd, 15)
	if got == nil || *got != 15 {
		t.Fatalf("expected 15, got %v", got)
	}
}
