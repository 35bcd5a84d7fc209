package group

import (
	"context"
	"strings"
	"time"

	"backend-voltride/internal/db"

	"github.com/google/uuid"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) CreateGroup(ctx context.Context, input Group) (Group, error) {
	input.ID = uuid.NewString()
	input.InviteCode = newInviteCode()
	row := s.db.QueryRow(ctx, `
		INSERT INTO groups (id, name, invite_code, meet_point, scheduled_at, description, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, input.ID, input.Name, input.InviteCode, input.MeetPoint, timePtr(input.ScheduledAt), input.Description, input.CreatedBy)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Group{}, err
	}
	return input, nil
}

func (s *Service) UpdateGroup(ctx context.Context, id string, patch Group) (Group, error) {
	grp, err := s.GetGroup(ctx, id)
	if err != nil {
		return Group{}, err
	}
	if patch.Name != "" {
		grp.Name = patch.Name
	}
	if patch.MeetPoint != "" {
		grp.MeetPoint = patch.MeetPoint
	}
	if !patch.ScheduledAt.IsZero() {
		grp.ScheduledAt = patch.ScheduledAt
	}
	if patch.Description != "" {
		grp.Description = patch.Description
	}

	_, err = s.db.Exec(ctx, `
		UPDATE groups
		SET name=$2, meet_point=$3, scheduled_at=$4, description=$5
		WHERE id=$1
	`, grp.ID, grp.Name, grp.MeetPoint, timePtr(grp.ScheduledAt), grp.Description)
	if err != nil {
		return Group{}, err
	}
	return grp, nil
}

func (s *Service) GetGroup(ctx context.Context, id string) (Group, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, invite_code, meet_point, scheduled_at, description, created_by, created_at
		FROM groups WHERE id=$1
	`, id)
	return scanGroup(row)
}

func (s *Service) GetByInviteCode(ctx context.Context, code string) (Group, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, invite_code, meet_point, scheduled_at, description, created_by, created_at
		FROM groups WHERE invite_code=$1
	`, strings.ToUpper(code))
	return scanGroup(row)
}

func (s *Service) DeleteGroup(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM groups WHERE id=$1`, id)
	return err
}

// Join upserts the rider's membership, so re-joining refreshes the nickname
// and role instead of failing.
func (s *Service) Join(ctx context.Context, groupID, userID, nickname, role string) (Membership, error) {
	if role == "" {
		role = "rider"
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO group_members (group_id, user_id, nickname, role)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (group_id, user_id) DO UPDATE SET nickname=EXCLUDED.nickname, role=EXCLUDED.role
		RETURNING joined_at
	`, groupID, userID, nickname, role)
	member := Membership{GroupID: groupID, UserID: userID, Nickname: nickname, Role: role}
	if err := row.Scan(&member.JoinedAt); err != nil {
		return Membership{}, err
	}
	return member, nil
}

func (s *Service) Members(ctx context.Context, groupID string) ([]Membership, error) {
	rows, err := s.db.Query(ctx, `
		SELECT group_id, user_id, nickname, role, joined_at
		FROM group_members WHERE group_id=$1
		ORDER BY joined_at
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Membership
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Nickname, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func (s *Service) Leave(ctx context.Context, groupID, userID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (Group, error) {
	var grp Group
	if err := row.Scan(&grp.ID, &grp.Name, &grp.InviteCode, &grp.MeetPoint, &grp.ScheduledAt, &grp.Description, &grp.CreatedBy, &grp.CreatedAt); err != nil {
		return Group{}, err
	}
	return grp, nil
}

func newInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
