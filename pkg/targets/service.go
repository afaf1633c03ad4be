package targets

import (
	"context"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/salespulse/platform/pkg/common/logger"
	"github.com/salespulse/platform/pkg/common/validation"
	"github.com/salespulse/platform/pkg/events"
)

var linkedInProfile = regexp.MustCompile(`^https?://(www\.)?linkedin\.com/in/[A-Za-z0-9_-]+/?$`)

func init() {
	validation.RegisterMessage("linkedin_profile", "must be a valid LinkedIn profile URL (e.g., https://linkedin.com/in/username)")
	validation.RegisterMessage("team", "must be a known team")
}

type CreateRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=255"`
	LinkedInURL string `json:"linkedin_url" validate:"required,url,linkedin_profile"`
	Team        string `json:"team" validate:"required,team"`
}

// UpdateRequest carries a partial change; nil fields are left untouched.
type UpdateRequest struct {
	ID          string  `json:"id"`
	Name        *string `json:"name" validate:"omitempty,min=2,max=255"`
	LinkedInURL *string `json:"linkedin_url" validate:"omitempty,url,linkedin_profile"`
	Team        *string `json:"team" validate:"omitempty,team"`
	IsActive    *bool   `json:"is_active"`
}

type Service struct {
	repo      *Repository
	catalog   Catalog
	validate  *validator.Validate
	publisher events.Publisher
}

// NewService publishes events.TargetChanged after every successful
// mutation so cached standings can be dropped. A nil publisher is allowed.
func NewService(repo *Repository, catalog Catalog, publisher events.Publisher) *Service {
	v := validation.New()
	_ = v.RegisterValidation("linkedin_profile", func(fl validator.FieldLevel) bool {
		return linkedInProfile.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("team", func(fl validator.FieldLevel) bool {
		return catalog.Contains(fl.Field().String())
	})
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{repo: repo, catalog: catalog, validate: v, publisher: publisher}
}

func (s *Service) Catalog() Catalog {
	return s.catalog
}

func (s *Service) List(ctx context.Context) ([]Target, error) {
	return s.repo.List(ctx)
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Target, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.LinkedInURL = strings.TrimSpace(req.LinkedInURL)
	if err := s.check(req); err != nil {
		return nil, err
	}

	target := &Target{
		Name:        req.Name,
		LinkedInURL: NormalizeProfileURL(req.LinkedInURL),
		Team:        req.Team,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, target); err != nil {
		return nil, err
	}
	logger.Log.WithFields(map[string]interface{}{
		"target_id": target.ID,
		"team":      target.Team,
	}).Info("tracked target created")
	events.EmitTarget(ctx, s.publisher, target.ID.String(), "created")
	return target, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Target, error) {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if req.LinkedInURL != nil {
		trimmed := strings.TrimSpace(*req.LinkedInURL)
		req.LinkedInURL = &trimmed
	}
	if err := s.check(req); err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if req.Name != nil {
		changes["name"] = *req.Name
	}
	if req.LinkedInURL != nil {
		changes["linkedin_url"] = NormalizeProfileURL(*req.LinkedInURL)
	}
	if req.Team != nil {
		changes["team"] = *req.Team
	}
	if req.IsActive != nil {
		changes["is_active"] = *req.IsActive
	}
	target, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		return nil, err
	}
	events.EmitTarget(ctx, s.publisher, id.String(), "updated")
	return target, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Log.WithField("target_id", id).Info("tracked target deleted")
	events.EmitTarget(ctx, s.publisher, id.String(), "deleted")
	return nil
}

func (s *Service) check(req interface{}) error {
	fields := validation.FieldErrors{}
	validation.Collect(s.validate.Struct(req), fields)
	if fields.Empty() {
		return nil
	}
	return &validation.Error{Message: "Validation failed", Fields: fields}
}

// NormalizeProfileURL drops a trailing slash and upgrades http to https so
// the unique index sees one spelling per profile.
func NormalizeProfileURL(raw string) string {
	normalized := strings.TrimSuffix(strings.TrimSpace(raw), "/")
	if strings.HasPrefix(normalized, "http://") {
		normalized = "https://" + strings.TrimPrefix(normalized, "http://")
	}
	return normalized
}
