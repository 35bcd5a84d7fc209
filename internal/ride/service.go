package ride

import (
	"context"
	"encoding/json"
	"time"

	"backend-voltride/internal/db"
	"backend-voltride/internal/track"

	"github.com/google/uuid"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// SaveRide persists a finalized ride. The compressed points go into a JSONB
// column next to the aggregates, so one row replays the whole ride.
func (s *Service) SaveRide(ctx context.Context, input Ride, points []track.GpsPoint) (Ride, error) {
	input.ID = uuid.NewString()
	if input.EndedAt.IsZero() {
		input.EndedAt = time.Now()
	}

	encoded, err := json.Marshal(points)
	if err != nil {
		return Ride{}, err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO rides (id, user_id, group_id, started_at, ended_at, distance_m, duration_sec,
			avg_speed_kmh, max_speed_kmh, eco_score, eco_grade, co2_saved_kg,
			original_count, compressed_count, points)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING created_at
	`, input.ID, input.UserID, input.GroupID, input.StartedAt, input.EndedAt,
		input.DistanceM, input.DurationSec, input.AvgSpeedKmh, input.MaxSpeedKmh,
		input.EcoScore, input.EcoGrade, input.CO2SavedKg,
		input.OriginalCount, input.CompressedCount, encoded)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Ride{}, err
	}
	return input, nil
}

func (s *Service) GetRide(ctx context.Context, id string) (Ride, error) {
	var r Ride
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, group_id, started_at, ended_at, distance_m, duration_sec,
			avg_speed_kmh, max_speed_kmh, eco_score, eco_grade, co2_saved_kg,
			original_count, compressed_count, created_at
		FROM rides WHERE id=$1
	`, id)
	if err := row.Scan(&r.ID, &r.UserID, &r.GroupID, &r.StartedAt, &r.EndedAt,
		&r.DistanceM, &r.DurationSec, &r.AvgSpeedKmh, &r.MaxSpeedKmh,
		&r.EcoScore, &r.EcoGrade, &r.CO2SavedKg,
		&r.OriginalCount, &r.CompressedCount, &r.CreatedAt); err != nil {
		return Ride{}, err
	}
	return r, nil
}

func (s *Service) ListRides(ctx context.Context, userID string) ([]Ride, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, group_id, started_at, ended_at, distance_m, duration_sec,
			avg_speed_kmh, max_speed_kmh, eco_score, eco_grade, co2_saved_kg,
			original_count, compressed_count, created_at
		FROM rides WHERE user_id=$1
		ORDER BY started_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []Ride
	for rows.Next() {
		var r Ride
		if err := rows.Scan(&r.ID, &r.UserID, &r.GroupID, &r.StartedAt, &r.EndedAt,
			&r.DistanceM, &r.DurationSec, &r.AvgSpeedKmh, &r.MaxSpeedKmh,
			&r.EcoScore, &r.EcoGrade, &r.CO2SavedKg,
			&r.OriginalCount, &r.CompressedCount, &r.CreatedAt); err != nil {
			return nil, err
		}
		rides = append(rides, r)
	}
	return rides, nil
}

// RidePoints returns the stored compressed polyline of one ride.
func (s *Service) RidePoints(ctx context.Context, id string) ([]track.GpsPoint, error) {
	var encoded []byte
	row := s.db.QueryRow(ctx, `SELECT points FROM rides WHERE id=$1`, id)
	if err := row.Scan(&encoded); err != nil {
		return nil, err
	}

	var points []track.GpsPoint
	if err := json.Unmarshal(encoded, &points); err != nil {
		return nil, err
	}
	return points, nil
}
