package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/MeetPoint/internal/domain/input"
	"github.com/qrave1/MeetPoint/internal/domain/models"
	"github.com/qrave1/MeetPoint/internal/infra/adapters/postgres/repository"
)

var (
	ErrMeetingNotStarted    = errors.New("meeting is not started")
	ErrMeetingAlreadyEnded  = errors.New("meeting is already ended")
	ErrMeetingAlreadyActive = errors.New("meeting is already started")
)

// MeetingUsecase определяет интерфейс для работы со встречами
type MeetingUsecase interface {
	CreateMeeting(ctx context.Context, in *input.CreateMeetingInput) (*models.Meeting, error)
	GetMeeting(ctx context.Context, roomID string) (*models.Meeting, error)
	GetMeetingsByHost(ctx context.Context, hostID uuid.UUID) ([]*models.Meeting, error)
	UpdateMeeting(ctx context.Context, in *input.UpdateMeetingInput) (*models.Meeting, error)
	DeleteMeeting(ctx context.Context, roomID string) error

	StartMeeting(ctx context.Context, roomID string) (*models.Meeting, error)
	EndMeeting(ctx context.Context, roomID string) (*models.Meeting, error)
}

type meetingUsecase struct {
	meetingRepo repository.MeetingRepository
}

func NewMeetingUsecase(meetingRepo repository.MeetingRepository) MeetingUsecase {
	return &meetingUsecase{meetingRepo: meetingRepo}
}

func (uc *meetingUsecase) CreateMeeting(ctx context.Context, in *input.CreateMeetingInput) (*models.Meeting, error) {
	meeting := models.NewMeeting(in)

	if err := uc.meetingRepo.Create(ctx, meeting); err != nil {
		return nil, fmt.Errorf("create meeting: %w", err)
	}

	return meeting, nil
}

func (uc *meetingUsecase) GetMeeting(ctx context.Context, roomID string) (*models.Meeting, error) {
	return uc.meetingRepo.GetByRoomID(ctx, roomID)
}

func (uc *meetingUsecase) GetMeetingsByHost(ctx context.Context, hostID uuid.UUID) ([]*models.Meeting, error) {
	return uc.meetingRepo.GetByHostID(ctx, hostID)
}

func (uc *meetingUsecase) UpdateMeeting(ctx context.Context, in *input.UpdateMeetingInput) (*models.Meeting, error) {
	meeting, err := uc.meetingRepo.GetByRoomID(ctx, in.RoomID)
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}

	meeting.Title = in.Title

	if err = uc.meetingRepo.Update(ctx, meeting); err != nil {
		return nil, fmt.Errorf("update meeting: %w", err)
	}

	return meeting, nil
}

func (uc *meetingUsecase) DeleteMeeting(ctx context.Context, roomID string) error {
	return uc.meetingRepo.Delete(ctx, roomID)
}

func (uc *meetingUsecase) StartMeeting(ctx context.Context, roomID string) (*models.Meeting, error) {
	meeting, err := uc.meetingRepo.GetByRoomID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}

	if meeting.StartedAt != nil && meeting.EndedAt == nil {
		return nil, ErrMeetingAlreadyActive
	}

	now := time.Now()

	if err = uc.meetingRepo.MarkStarted(ctx, roomID, now); err != nil {
		return nil, fmt.Errorf("mark meeting started: %w", err)
	}

	meeting.StartedAt = &now
	meeting.EndedAt = nil
	meeting.Duration = 0

	return meeting, nil
}

func (uc *meetingUsecase) EndMeeting(ctx context.Context, roomID string) (*models.Meeting, error) {
	meeting, err := uc.meetingRepo.GetByRoomID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}

	if meeting.StartedAt == nil {
		return nil, ErrMeetingNotStarted
	}

	if meeting.EndedAt != nil {
		return nil, ErrMeetingAlreadyEnded
	}

	now := time.Now()
	duration := int64(now.Sub(*meeting.StartedAt).Seconds())

	if err = uc.meetingRepo.MarkEnded(ctx, roomID, now, duration); err != nil {
		return nil, fmt.Errorf("mark meeting ended: %w", err)
	}

	meeting.EndedAt = &now
	meeting.Duration = duration

	return meeting, nil
}
