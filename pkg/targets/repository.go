package targets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTargetNotFound = errors.New("tracked target not found")
	ErrDuplicateURL   = errors.New("a target with this LinkedIn URL already exists")
)

type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Target{})
}

// Create checks for an existing URL first so the common case reports a clean
// conflict. The unique index still decides races between concurrent creates.
func (r *Repository) Create(ctx context.Context, target *Target) error {
	taken, err := r.urlTaken(ctx, target.LinkedInURL, uuid.Nil)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateURL
	}

	if target.ID == uuid.Nil {
		target.ID = uuid.New()
	}
	target.CreatedAt = r.now()
	target.UpdatedAt = target.CreatedAt

	if err := r.db.WithContext(ctx).Create(target).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateURL
		}
		return fmt.Errorf("creating target: %w", err)
	}
	return nil
}

// Update applies a partial change set. Keys are column names.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, changes map[string]interface{}) (*Target, error) {
	if url, ok := changes["linkedin_url"].(string); ok {
		taken, err := r.urlTaken(ctx, url, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDuplicateURL
		}
	}

	if len(changes) > 0 {
		changes["updated_at"] = r.now()
		result := r.db.WithContext(ctx).Model(&Target{}).Where("id = ?", id).Updates(changes)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return nil, ErrDuplicateURL
			}
			return nil, fmt.Errorf("updating target: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrTargetNotFound
		}
	}
	return r.Get(ctx, id)
}

// Delete removes the target. Its posts go with it through the foreign key.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Target{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("deleting target: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTargetNotFound
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Target, error) {
	var target Target
	result := r.db.WithContext(ctx).First(&target, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrTargetNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &target, nil
}

func (r *Repository) List(ctx context.Context) ([]Target, error) {
	var out []Target
	err := r.db.WithContext(ctx).Order("name asc").Find(&out).Error
	return out, err
}

func (r *Repository) ListActive(ctx context.Context) ([]Target, error) {
	var out []Target
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name asc").Find(&out).Error
	return out, err
}

func (r *Repository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Target{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}

func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Target{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *Repository) TouchLastScraped(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&Target{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_scraped_at": at,
			"updated_at":      r.now(),
		})
	if result.Error != nil {
		return fmt.Errorf("touching last_scraped_at: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTargetNotFound
	}
	return nil
}

func (r *Repository) urlTaken(ctx context.Context, url string, exclude uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&Target{}).Where("linkedin_url = ?", url)
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking linkedin_url: %w", err)
	}
	return count > 0, nil
}
