package member

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kswpuk/portal-api/internal/apperr"
)

type Repository interface {
	Create(ctx context.Context, m *Member) error
	GetByMembershipNumber(ctx context.Context, membershipNumber string) (*Member, error)
	List(ctx context.Context) ([]Member, error)
	ListActive(ctx context.Context) ([]Member, error)
	Update(ctx context.Context, m *Member) error
	SetSuspended(ctx context.Context, membershipNumber string, suspended bool) error
	SetStatus(ctx context.Context, membershipNumber string, status string) error
	ExtendMembership(ctx context.Context, membershipNumber string, expires time.Time) error
	Delete(ctx context.Context, membershipNumber string) error
	ExpiringBetween(ctx context.Context, from, to time.Time) ([]Member, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, m *Member) error {
	err := r.db.WithContext(ctx).Create(m).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflictf("member %s already exists", m.MembershipNumber)
	}
	return err
}

func (r *repository) GetByMembershipNumber(ctx context.Context, membershipNumber string) (*Member, error) {
	var m Member
	err := r.db.WithContext(ctx).
		Where("membership_number = ? AND deleted_at IS NULL", membershipNumber).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("member %s not found", membershipNumber)
		}
		return nil, apperr.Collaborator("member lookup", err)
	}
	return &m, nil
}

func (r *repository) List(ctx context.Context) ([]Member, error) {
	var members []Member
	err := r.db.WithContext(ctx).
		Where("deleted_at IS NULL").
		Order("surname, first_name").
		Find(&members).Error
	return members, err
}

func (r *repository) ListActive(ctx context.Context) ([]Member, error) {
	var members []Member
	err := r.db.WithContext(ctx).
		Where("status = ? AND deleted_at IS NULL", StatusActive).
		Order("membership_number").
		Find(&members).Error
	return members, err
}

func (r *repository) Update(ctx context.Context, m *Member) error {
	res := r.db.WithContext(ctx).
		Model(&Member{}).
		Where("membership_number = ? AND deleted_at IS NULL", m.MembershipNumber).
		Updates(map[string]interface{}{
			"first_name":                  m.FirstName,
			"surname":                     m.Surname,
			"preferred_name":              m.PreferredName,
			"email":                       m.Email,
			"telephone":                   m.Telephone,
			"address":                     m.Address,
			"postcode":                    m.Postcode,
			"emergency_contact_name":      m.EmergencyContactName,
			"emergency_contact_telephone": m.EmergencyContactTelephone,
			"medical_information":         m.MedicalInformation,
			"dietary_requirements":        m.DietaryRequirements,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("member %s not found", m.MembershipNumber)
	}
	return nil
}

func (r *repository) SetSuspended(ctx context.Context, membershipNumber string, suspended bool) error {
	res := r.db.WithContext(ctx).
		Model(&Member{}).
		Where("membership_number = ? AND deleted_at IS NULL", membershipNumber).
		Update("suspended", suspended)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("member %s not found", membershipNumber)
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, membershipNumber string, status string) error {
	res := r.db.WithContext(ctx).
		Model(&Member{}).
		Where("membership_number = ? AND deleted_at IS NULL", membershipNumber).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("member %s not found", membershipNumber)
	}
	return nil
}

func (r *repository) ExtendMembership(ctx context.Context, membershipNumber string, expires time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&Member{}).
		Where("membership_number = ? AND deleted_at IS NULL", membershipNumber).
		Updates(map[string]interface{}{
			"membership_expires": expires,
			"status":             StatusActive,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("member %s not found", membershipNumber)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, membershipNumber string) error {
	res := r.db.WithContext(ctx).
		Model(&Member{}).
		Where("membership_number = ? AND deleted_at IS NULL", membershipNumber).
		Update("deleted_at", gorm.Expr("NOW()"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("member %s not found", membershipNumber)
	}
	return nil
}

// ExpiringBetween lists active members whose membership expires in the window.
// Used by the expiry sweep job.
func (r *repository) ExpiringBetween(ctx context.Context, from, to time.Time) ([]Member, error) {
	var members []Member
	err := r.db.WithContext(ctx).
		Where("status = ? AND deleted_at IS NULL AND membership_expires >= ? AND membership_expires <= ?", StatusActive, from, to).
		Find(&members).Error
	return members, err
}
