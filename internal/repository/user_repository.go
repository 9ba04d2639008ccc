package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storefront/internal/model"
)

// publicUserColumns excludes the password hash so profile reads never load it.
var publicUserColumns = []string{"id", "username", "email", "role", "created_at", "updated_at"}

// UserRepository defines user persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmailWithPassword(ctx context.Context, email string) (*model.User, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error)
	ExistsOther(ctx context.Context, excludeID uuid.UUID, email, username string) (bool, error)
	Update(ctx context.Context, id uuid.UUID, columns map[string]interface{}) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID loads the public columns of a user.
func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Select(publicUserColumns).
		Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmailWithPassword is the credential lookup used by login. It is the only read that loads the hash.
func (r *userRepository) FindByEmailWithPassword(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmailOrUsername finds any user holding the email or the username.
func (r *userRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Select(publicUserColumns).
		Where("email = ? OR username = ?", email, username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsOther reports whether a user other than excludeID holds the email or the username.
// Empty values are ignored.
func (r *userRepository) ExistsOther(ctx context.Context, excludeID uuid.UUID, email, username string) (bool, error) {
	if email == "" && username == "" {
		return false, nil
	}

	query := r.db.WithContext(ctx).Model(&model.User{}).Where("id <> ?", excludeID)
	switch {
	case email != "" && username != "":
		query = query.Where("email = ? OR username = ?", email, username)
	case email != "":
		query = query.Where("email = ?", email)
	default:
		query = query.Where("username = ?", username)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update writes the given columns. It returns gorm.ErrRecordNotFound when no row matched.
func (r *userRepository) Update(ctx context.Context, id uuid.UUID, columns map[string]interface{}) error {
	if len(columns) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
