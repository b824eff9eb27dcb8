package notification

import (
	"context"

	"github.com/kswpuk/portal-api/internal/apperr"
)

type Service interface {
	RegisterDevice(ctx context.Context, membershipNumber string, req RegisterDeviceRequest) (*DeviceToken, error)
	RemoveDevice(ctx context.Context, membershipNumber, token string) error
	History(ctx context.Context, membershipNumber string, limit int) ([]NotificationLog, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) RegisterDevice(ctx context.Context, membershipNumber string, req RegisterDeviceRequest) (*DeviceToken, error) {
	if req.Token == "" {
		return nil, apperr.Validation("Device token is required")
	}

	deviceType := req.DeviceType
	switch deviceType {
	case "", "android", "ios", "web":
	default:
		return nil, apperr.Validation("Device type must be one of android, ios, web")
	}

	token := &DeviceToken{
		MembershipNumber: membershipNumber,
		Token:            req.Token,
		DeviceType:       deviceType,
	}
	if err := s.repo.SaveDeviceToken(ctx, token); err != nil {
		return nil, apperr.Collaborator("save device token", err)
	}
	return token, nil
}

func (s *service) RemoveDevice(ctx context.Context, membershipNumber, token string) error {
	if err := s.repo.DeleteDeviceToken(ctx, membershipNumber, token); err != nil {
		return apperr.Collaborator("delete device token", err)
	}
	return nil
}

func (s *service) History(ctx context.Context, membershipNumber string, limit int) ([]NotificationLog, error) {
	logs, err := s.repo.ListByMember(ctx, membershipNumber, limit)
	if err != nil {
		return nil, apperr.Collaborator("list notifications", err)
	}
	if logs == nil {
		logs = []NotificationLog{}
	}
	return logs, nil
}
