package notification

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	SaveDeviceToken(ctx context.Context, token *DeviceToken) error
	DeleteDeviceToken(ctx context.Context, membershipNumber, token string) error
	GetDeviceTokens(ctx context.Context, membershipNumber string) ([]string, error)
	LogNotification(ctx context.Context, entry *NotificationLog) error
	ListByMember(ctx context.Context, membershipNumber string, limit int) ([]NotificationLog, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// SaveDeviceToken upserts so a token moving between accounts follows the
// most recent registration.
func (r *repository) SaveDeviceToken(ctx context.Context, token *DeviceToken) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"membership_number", "device_type"}),
		}).
		Create(token).Error
}

func (r *repository) DeleteDeviceToken(ctx context.Context, membershipNumber, token string) error {
	return r.db.WithContext(ctx).
		Where("membership_number = ? AND token = ?", membershipNumber, token).
		Delete(&DeviceToken{}).Error
}

func (r *repository) GetDeviceTokens(ctx context.Context, membershipNumber string) ([]string, error) {
	var tokens []string
	err := r.db.WithContext(ctx).
		Model(&DeviceToken{}).
		Where("membership_number = ?", membershipNumber).
		Pluck("token", &tokens).Error
	return tokens, err
}

func (r *repository) LogNotification(ctx context.Context, entry *NotificationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByMember(ctx context.Context, membershipNumber string, limit int) ([]NotificationLog, error) {
	if limit <= 0 {
		limit = 50
	}

	var logs []NotificationLog
	err := r.db.WithContext(ctx).
		Where("membership_number = ?", membershipNumber).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
