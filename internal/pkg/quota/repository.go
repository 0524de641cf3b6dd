package quota

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/styleshot/styleshot/app/models"
)

// Repository provides the ledger operations used by the quota service.
type Repository interface {
	GetByUserID(userID string) (*models.UserSubscription, error)
	Create(sub *models.UserSubscription) error
	UpdateFields(userID string, fields map[string]interface{}) error
	ConsumeFreeGeneration(userID string) error
	IncrementTotalGenerations(userID string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a quota repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetByUserID(userID string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	if err := r.db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) Create(sub *models.UserSubscription) error {
	// Two requests can race on first access; keep the winner's row.
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(sub).Error; err != nil {
		return err
	}
	return r.db.Where("user_id = ?", sub.UserID).First(sub).Error
}

func (r *gormRepository) UpdateFields(userID string, fields map[string]interface{}) error {
	return r.db.Model(&models.UserSubscription{}).Where("user_id = ?", userID).Updates(fields).Error
}

// ConsumeFreeGeneration applies the free-tier decrement in a single UPDATE so
// concurrent consumers cannot drive the remaining count negative.
func (r *gormRepository) ConsumeFreeGeneration(userID string) error {
	return r.db.Model(&models.UserSubscription{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"remaining_generations": gorm.Expr("GREATEST(remaining_generations - 1, 0)"),
			"total_generations":     gorm.Expr("total_generations + 1"),
		}).Error
}

func (r *gormRepository) IncrementTotalGenerations(userID string) error {
	return r.db.Model(&models.UserSubscription{}).
		Where("user_id = ?", userID).
		Update("total_generations", gorm.Expr("total_generations + 1")).Error
}
