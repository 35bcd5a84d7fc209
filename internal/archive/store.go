package archive

import (
	"database/sql"
	"fmt"
	"time"

	"backend-voltride/internal/ride"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Entry is one archived ride plus where it came from.
type Entry struct {
	ride.Ride
	Source string `json:"source,omitempty"`
}

// Stats aggregates the whole archive.
type Stats struct {
	TotalRides      int     `json:"total_rides"`
	TotalDistanceM  float64 `json:"total_distance_m"`
	TotalDurationS  float64 `json:"total_duration_sec"`
	TotalCO2SavedKg float64 `json:"total_co2_saved_kg"`
	AvgEcoScore     float64 `json:"avg_eco_score"`
}

// Store is the local sqlite ride archive.
type Store struct {
	conn *sql.DB
}

// Open opens or creates the archive at path. WAL keeps ingest fast; sqlite
// wants a single writer, so the pool is pinned to one connection.
func Open(path string) (*Store, error) {
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL", path)

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	s := &Store{conn: conn}
	if err := s.initialize(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize archive: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rides (
		id TEXT PRIMARY KEY,
		source TEXT,
		started_at DATETIME,
		ended_at DATETIME,
		distance_m REAL NOT NULL,
		duration_sec REAL NOT NULL,
		avg_speed_kmh REAL NOT NULL,
		max_speed_kmh REAL NOT NULL,
		eco_score INTEGER NOT NULL,
		eco_grade TEXT NOT NULL,
		co2_saved_kg REAL NOT NULL,
		original_count INTEGER NOT NULL,
		compressed_count INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_rides_started_at ON rides(started_at);
	CREATE INDEX IF NOT EXISTS idx_rides_eco_score ON rides(eco_score);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// InsertRide archives one finalized ride. A missing ID is generated.
func (s *Store) InsertRide(e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.conn.Exec(`
		INSERT INTO rides (id, source, started_at, ended_at, distance_m, duration_sec,
			avg_speed_kmh, max_speed_kmh, eco_score, eco_grade, co2_saved_kg,
			original_count, compressed_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Source, e.StartedAt, e.EndedAt, e.DistanceM, e.DurationSec,
		e.AvgSpeedKmh, e.MaxSpeedKmh, e.EcoScore, e.EcoGrade, e.CO2SavedKg,
		e.OriginalCount, e.CompressedCount, e.CreatedAt)
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// ListRides returns the archive newest first.
func (s *Store) ListRides() ([]Entry, error) {
	rows, err := s.conn.Query(`
		SELECT id, source, started_at, ended_at, distance_m, duration_sec,
			avg_speed_kmh, max_speed_kmh, eco_score, eco_grade, co2_saved_kg,
			original_count, compressed_count, created_at
		FROM rides
		ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var source sql.NullString
		if err := rows.Scan(&e.ID, &source, &e.StartedAt, &e.EndedAt, &e.DistanceM, &e.DurationSec,
			&e.AvgSpeedKmh, &e.MaxSpeedKmh, &e.EcoScore, &e.EcoGrade, &e.CO2SavedKg,
			&e.OriginalCount, &e.CompressedCount, &e.CreatedAt); err != nil {
			return nil, err
		}
		if source.Valid {
			e.Source = source.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats aggregates every archived ride.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.conn.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(distance_m), 0),
			COALESCE(SUM(duration_sec), 0),
			COALESCE(SUM(co2_saved_kg), 0),
			COALESCE(AVG(eco_score), 0)
		FROM rides
	`).Scan(&st.TotalRides, &st.TotalDistanceM, &st.TotalDurationS, &st.TotalCO2SavedKg, &st.AvgEcoScore)
	return st, err
}
