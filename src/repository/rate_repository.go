package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"exchangeapi/src/database"
	"exchangeapi/src/model"
)

// RateRepository stores externally sourced reference rates.
type RateRepository struct {
	db *gorm.DB
}

// NewRateRepository creates a new repository instance using the main read/write database.
func NewRateRepository() *RateRepository {
	return &RateRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *RateRepository) WithDB(db *gorm.DB) *RateRepository {
	return &RateRepository{db: db}
}

// Upsert inserts the rate or refreshes it when the (pair, source) row
// already exists.
func (r *RateRepository) Upsert(
	ctx context.Context,
	rate *model.ReferenceRate,
) error {

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pair"}, {Name: "source"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "fetched_at"}),
	}).Create(rate).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "RateRepository",
			"op":     "Upsert",
			"pair":   rate.Pair,
			"source": rate.Source,
		}).WithError(err).Error("Failed to upsert reference rate")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":   "RateRepository",
		"op":     "Upsert",
		"pair":   rate.Pair,
		"source": rate.Source,
		"rate":   rate.Rate,
	}).Debug("Reference rate upserted")

	return nil
}

// FindByPair returns the freshest stored rate for a pair.
// Returns (nil, nil) if no rate is stored.
func (r *RateRepository) FindByPair(
	ctx context.Context,
	pair string,
) (*model.ReferenceRate, error) {

	var rate model.ReferenceRate

	err := r.db.WithContext(ctx).
		Where("pair = ?", pair).
		Order("fetched_at DESC").
		First(&rate).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "RateRepository",
			"op":   "FindByPair",
			"pair": pair,
		}).WithError(err).Error("Failed to fetch reference rate")

		return nil, err
	}

	return &rate, nil
}
