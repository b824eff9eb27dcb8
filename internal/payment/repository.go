package payment

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kswpuk/portal-api/internal/apperr"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*Payment, error)
	UpdateByOrderID(ctx context.Context, orderID string, params updatePaymentParams) error
	ListByMember(ctx context.Context, membershipNumber string) ([]Payment, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Payment) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return apperr.Collaborator("create payment", err)
	}
	return nil
}

func (r *repository) GetByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	var p Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("payment for order %s", orderID)
	}
	if err != nil {
		return nil, apperr.Collaborator("get payment", err)
	}
	return &p, nil
}

func (r *repository) UpdateByOrderID(ctx context.Context, orderID string, params updatePaymentParams) error {
	updates := map[string]interface{}{
		"status":     params.Status,
		"payment_id": params.PaymentID,
		"method":     params.Method,
		"paid_at":    params.PaidAt,
	}

	res := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("order_id = ?", orderID).
		Updates(updates)
	if res.Error != nil {
		return apperr.Collaborator("update payment", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("payment for order %s", orderID)
	}
	return nil
}

func (r *repository) ListByMember(ctx context.Context, membershipNumber string) ([]Payment, error) {
	var payments []Payment
	err := r.db.WithContext(ctx).
		Where("membership_number = ?", membershipNumber).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, apperr.Collaborator("list payments", err)
	}
	return payments, nil
}
