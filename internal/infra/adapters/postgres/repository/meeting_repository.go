package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/qrave1/MeetPoint/internal/domain/models"
)

type MeetingRepository interface {
	Create(ctx context.Context, meeting *models.Meeting) error
	GetByRoomID(ctx context.Context, roomID string) (*models.Meeting, error)
	GetByHostID(ctx context.Context, hostID uuid.UUID) ([]*models.Meeting, error)
	Update(ctx context.Context, meeting *models.Meeting) error
	Delete(ctx context.Context, roomID string) error

	MarkStarted(ctx context.Context, roomID string, startedAt time.Time) error
	MarkEnded(ctx context.Context, roomID string, endedAt time.Time, duration int64) error
}

type meetingRepo struct {
	db *sqlx.DB
}

func NewMeetingRepo(db *sqlx.DB) MeetingRepository {
	return &meetingRepo{db: db}
}

func (r *meetingRepo) Create(ctx context.Context, meeting *models.Meeting) error {
	_, err := r.db.ExecContext(
		ctx,
		"INSERT INTO meetings (id, room_id, title, host_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)",
		meeting.ID,
		meeting.RoomID,
		meeting.Title,
		meeting.HostID,
		meeting.CreatedAt,
		meeting.UpdatedAt,
	)

	return err
}

func (r *meetingRepo) GetByRoomID(ctx context.Context, roomID string) (*models.Meeting, error) {
	var meeting models.Meeting

	err := r.db.GetContext(ctx, &meeting, "SELECT * FROM meetings WHERE room_id = $1", roomID)
	if err != nil {
		return nil, err
	}

	return &meeting, nil
}

func (r *meetingRepo) GetByHostID(ctx context.Context, hostID uuid.UUID) ([]*models.Meeting, error) {
	var meetings []*models.Meeting

	query := `
		SELECT m.*
		FROM meetings m
		WHERE m.host_id = $1
		ORDER BY m.created_at DESC
	`

	err := r.db.SelectContext(ctx, &meetings, query, hostID)
	if err != nil {
		return nil, err
	}

	return meetings, nil
}

func (r *meetingRepo) Update(ctx context.Context, meeting *models.Meeting) error {
	_, err := r.db.ExecContext(
		ctx,
		"UPDATE meetings SET title = $1, updated_at = $2 WHERE room_id = $3",
		meeting.Title,
		time.Now(),
		meeting.RoomID,
	)

	return err
}

func (r *meetingRepo) Delete(ctx context.Context, roomID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM meetings WHERE room_id = $1", roomID)

	return err
}

func (r *meetingRepo) MarkStarted(ctx context.Context, roomID string, startedAt time.Time) error {
	_, err := r.db.ExecContext(
		ctx,
		"UPDATE meetings SET started_at = $1, updated_at = $2 WHERE room_id = $3",
		startedAt,
		time.Now(),
		roomID,
	)

	return err
}

func (r *meetingRepo) MarkEnded(ctx context.Context, roomID string, endedAt time.Time, duration int64) error {
	_, err := r.db.ExecContext(
		ctx,
		"UPDATE meetings SET ended_at = $1, duration = $2, updated_at = $3 WHERE room_id = $4",
		endedAt,
		duration,
		time.Now(),
		roomID,
	)

	return err
}
