package account

import (
	"context"
	"fmt"
	"time"

	"account-service/internal/database"
	"account-service/internal/query"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the persistence contract the service and the authentication
// gate depend on. Store failures propagate raw; translating them into client
// errors is the error middleware's job.
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID, opts ...FindOption) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*Account, error)
	Update(ctx context.Context, account *Account) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, opts query.Options, defaults query.Defaults) ([]Account, error)
}

type FindOptions struct {
	IncludeInactive bool
}

type FindOption func(*FindOptions)

// IncludeInactive bypasses the default active-only predicate. Privileged
// callers only.
func IncludeInactive() FindOption {
	return func(o *FindOptions) { o.IncludeInactive = true }
}

// ResolveFindOptions folds the options into their effective form.
func ResolveFindOptions(opts ...FindOption) FindOptions {
	var o FindOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type GormRepository struct {
	db *database.Database
}

func NewRepository(db *database.Database) *GormRepository {
	return &GormRepository{db: db}
}

// scope applies the default predicate excluding soft-deleted accounts unless
// a privileged bypass was requested.
func (r *GormRepository) scope(ctx context.Context, opts ...FindOption) *gorm.DB {
	o := ResolveFindOptions(opts...)

	db := r.db.DB.WithContext(ctx)
	if !o.IncludeInactive {
		db = db.Where("active = ?", true)
	}
	return db
}

func (r *GormRepository) Create(ctx context.Context, account *Account) error {
	account.ID = uuid.New()
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()
	account.Active = true

	return r.db.DB.WithContext(ctx).Create(account).Error
}

func (r *GormRepository) GetByID(ctx context.Context, id uuid.UUID, opts ...FindOption) (*Account, error) {
	var account Account
	if err := r.scope(ctx, opts...).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *GormRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	var account Account
	if err := r.scope(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *GormRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*Account, error) {
	var account Account
	err := r.scope(ctx).
		Where("password_reset_token_hash = ? AND password_reset_expires_at > ?", tokenHash, time.Now()).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *GormRepository) Update(ctx context.Context, account *Account) error {
	account.UpdatedAt = time.Now()

	result := r.db.DB.WithContext(ctx).Save(account)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.DB.WithContext(ctx).Delete(&Account{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List runs the composed feature query as one statement.
func (r *GormRepository) List(ctx context.Context, opts query.Options, defaults query.Defaults) ([]Account, error) {
	var accounts []Account

	db := opts.Apply(r.scope(ctx).Model(&Account{}), defaults)
	if err := db.Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}
