package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"exchangeapi/src/database"
	"exchangeapi/src/model"
)

// UserRepository handles read/write operations for marketplace users.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository instance using the main read/write database.
func NewUserRepository() *UserRepository {
	logger.WithField("component", "UserRepository").
		Info("Creating new UserRepository with MainDB")

	return &UserRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *UserRepository) WithDB(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID fetches a user by primary ID. Returns (nil, nil) if not found.
func (r *UserRepository) FindByID(
	ctx context.Context,
	id uint,
) (*model.User, error) {

	var user model.User

	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "UserRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch user by ID")

		return nil, err
	}

	return &user, nil
}

// FindByTokenHash fetches the user owning the given API token hash.
// Returns (nil, nil) if no user matches.
func (r *UserRepository) FindByTokenHash(
	ctx context.Context,
	tokenHash string,
) (*model.User, error) {

	var user model.User

	err := r.db.WithContext(ctx).
		Where("api_token_hash = ?", tokenHash).
		First(&user).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "UserRepository",
			"op":   "FindByTokenHash",
		}).WithError(err).Error("Failed to fetch user by token hash")

		return nil, err
	}

	return &user, nil
}

// Save persists changes to an existing user.
func (r *UserRepository) Save(
	ctx context.Context,
	user *model.User,
) error {

	err := r.db.WithContext(ctx).Save(user).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "UserRepository",
			"op":      "Save",
			"user_id": user.ID,
		}).WithError(err).Error("Failed to save user")

		return err
	}

	return nil
}
