package application

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kswpuk/portal-api/internal/apperr"
)

type Repository interface {
	Create(ctx context.Context, app *Application, refs []Reference) error
	Get(ctx context.Context, membershipNumber string) (*Application, error)
	Exists(ctx context.Context, membershipNumber string) (bool, error)
	List(ctx context.Context) ([]Application, error)
	Delete(ctx context.Context, membershipNumber string) error

	GetReference(ctx context.Context, membershipNumber, email string) (*Reference, error)
	ListReferences(ctx context.Context, membershipNumber string) ([]Reference, error)
	UpdateReference(ctx context.Context, ref *Reference) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create stores the application and its two referee rows in one transaction.
// The conditional insert loses to an already-stored application, which the
// caller surfaces as a conflict.
func (r *repository) Create(ctx context.Context, app *Application, refs []Reference) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(app)
		if res.Error != nil {
			return apperr.Collaborator("create application", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflictf("application %s already exists", app.MembershipNumber)
		}

		for i := range refs {
			if err := tx.Create(&refs[i]).Error; err != nil {
				return apperr.Collaborator("create reference", err)
			}
		}
		return nil
	})
}

func (r *repository) Get(ctx context.Context, membershipNumber string) (*Application, error) {
	var app Application
	err := r.db.WithContext(ctx).
		Where("membership_number = ?", membershipNumber).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("application %s", membershipNumber)
	}
	if err != nil {
		return nil, apperr.Collaborator("get application", err)
	}
	return &app, nil
}

func (r *repository) Exists(ctx context.Context, membershipNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Application{}).
		Where("membership_number = ?", membershipNumber).
		Count(&count).Error
	if err != nil {
		return false, apperr.Collaborator("check application", err)
	}
	return count > 0, nil
}

func (r *repository) List(ctx context.Context) ([]Application, error) {
	var apps []Application
	err := r.db.WithContext(ctx).
		Order("submitted_at ASC").
		Find(&apps).Error
	if err != nil {
		return nil, apperr.Collaborator("list applications", err)
	}
	return apps, nil
}

// Delete removes the application and its reference rows together
func (r *repository) Delete(ctx context.Context, membershipNumber string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("membership_number = ?", membershipNumber).
			Delete(&Reference{}).Error; err != nil {
			return apperr.Collaborator("delete references", err)
		}

		res := tx.Where("membership_number = ?", membershipNumber).Delete(&Application{})
		if res.Error != nil {
			return apperr.Collaborator("delete application", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFoundf("application %s", membershipNumber)
		}
		return nil
	})
}

func (r *repository) GetReference(ctx context.Context, membershipNumber, email string) (*Reference, error) {
	var ref Reference
	err := r.db.WithContext(ctx).
		Where("membership_number = ? AND reference_email = ?", membershipNumber, email).
		First(&ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("reference for %s", membershipNumber)
	}
	if err != nil {
		return nil, apperr.Collaborator("get reference", err)
	}
	return &ref, nil
}

func (r *repository) ListReferences(ctx context.Context, membershipNumber string) ([]Reference, error) {
	var refs []Reference
	err := r.db.WithContext(ctx).
		Where("membership_number = ?", membershipNumber).
		Find(&refs).Error
	if err != nil {
		return nil, apperr.Collaborator("list references", err)
	}
	return refs, nil
}

func (r *repository) UpdateReference(ctx context.Context, ref *Reference) error {
	res := r.db.WithContext(ctx).
		Where("membership_number = ? AND reference_email = ?", ref.MembershipNumber, ref.ReferenceEmail).
		Save(ref)
	if res.Error != nil {
		return apperr.Collaborator("update reference", res.Error)
	}
	return nil
}
