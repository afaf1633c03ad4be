package targets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/salespulse/platform/pkg/common/database/dbtest"
	"github.com/salespulse/platform/pkg/common/validation"
	"github.com/salespulse/platform/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *Repository) {
	t.Helper()
	repo := NewRepository(dbtest.New(t))
	require.NoError(t, repo.AutoMigrate())
	return NewService(repo, DefaultCatalog(), nil), repo
}

func strPtr(s string) *string { return &s }

func TestCreateNormalizesURL(t *testing.T) {
	svc, _ := newService(t)

	target, err := svc.Create(context.Background(), CreateRequest{
		Name:        "  Jane Doe ",
		LinkedInURL: "http://www.linkedin.com/in/jane-doe/",
		Team:        TeamSalesEnterprise,
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", target.Name)
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe", target.LinkedInURL)
	assert.True(t, target.IsActive)
	assert.NotEqual(t, uuid.Nil, target.ID)
}

func TestCreateReportsEveryInvalidField(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Create(context.Background(), CreateRequest{
		Name:        "J",
		LinkedInURL: "https://example.com/in/jane",
		Team:        "Marketing",
	})
	require.Error(t, err)

	var ve *validation.Error
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "name")
	assert.Contains(t, ve.Fields, "linkedin_url")
	assert.Contains(t, ve.Fields, "team")
	assert.Equal(t, []string{"must be a known team"}, ve.Fields["team"])
}

func TestDuplicateURLConflicts(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{Name: "Jane Doe", LinkedInURL: "https://linkedin.com/in/jane", Team: TeamBDR})
	require.NoError(t, err)

	// Same profile after normalization.
	_, err = svc.Create(ctx, CreateRequest{Name: "Jane Again", LinkedInURL: "http://linkedin.com/in/jane/", Team: TeamBDR})
	assert.ErrorIs(t, err, ErrDuplicateURL)
	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	other, err := svc.Create(ctx, CreateRequest{Name: "John Roe", LinkedInURL: "https://linkedin.com/in/john", Team: TeamSalesPro})
	require.NoError(t, err)

	_, err = svc.Update(ctx, other.ID, UpdateRequest{LinkedInURL: strPtr("https://linkedin.com/in/jane")})
	assert.ErrorIs(t, err, ErrDuplicateURL)

	// Re-saving its own URL is not a conflict.
	updated, err := svc.Update(ctx, other.ID, UpdateRequest{LinkedInURL: strPtr("https://linkedin.com/in/john/")})
	require.NoError(t, err)
	assert.Equal(t, "https://linkedin.com/in/john", updated.LinkedInURL)
}

func TestUpdateIsPartial(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	target, err := svc.Create(ctx, CreateRequest{Name: "Jane Doe", LinkedInURL: "https://linkedin.com/in/jane", Team: TeamBDR})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(ctx, target.ID, UpdateRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "Jane Doe", updated.Name)
	assert.Equal(t, TeamBDR, updated.Team)

	_, err = svc.Update(ctx, target.ID, UpdateRequest{Team: strPtr("Nope")})
	assert.True(t, validation.IsValidationError(err))

	_, err = svc.Update(ctx, uuid.New(), UpdateRequest{Name: strPtr("Someone")})
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestListActiveAndTouch(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	bob, err := svc.Create(ctx, CreateRequest{Name: "Bob", LinkedInURL: "https://linkedin.com/in/bob", Team: TeamBDR})
	require.NoError(t, err)
	alice, err := svc.Create(ctx, CreateRequest{Name: "Alice", LinkedInURL: "https://linkedin.com/in/alice", Team: TeamBDR})
	require.NoError(t, err)
	inactive := false
	_, err = svc.Update(ctx, bob.ID, UpdateRequest{IsActive: &inactive})
	require.NoError(t, err)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Alice", all[0].Name)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, alice.ID, active[0].ID)

	count, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.TouchLastScraped(ctx, alice.ID, at))
	got, err := repo.Get(ctx, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastScrapedAt)
	assert.True(t, at.Equal(*got.LastScrapedAt))

	assert.ErrorIs(t, repo.TouchLastScraped(ctx, uuid.New(), at), ErrTargetNotFound)

	exists, err := repo.Exists(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMutationsPublishTargetChanged(t *testing.T) {
	repo := NewRepository(dbtest.New(t))
	require.NoError(t, repo.AutoMigrate())
	var seen []string
	svc := NewService(repo, DefaultCatalog(), events.Func(func(_ context.Context, eventType, key string, data map[string]interface{}) error {
		assert.Equal(t, events.TargetChanged, eventType)
		assert.Equal(t, key, data["target_id"])
		seen = append(seen, data["action"].(string))
		return nil
	}))
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{Name: "x", LinkedInURL: "bad", Team: "Nope"})
	require.Error(t, err)
	target, err := svc.Create(ctx, CreateRequest{Name: "Jane Doe", LinkedInURL: "https://linkedin.com/in/jane", Team: TeamBDR})
	require.NoError(t, err)
	_, err = svc.Update(ctx, target.ID, UpdateRequest{Name: strPtr("Jane D")})
	require.NoError(t, err)
	_, err = svc.Update(ctx, uuid.New(), UpdateRequest{Name: strPtr("Someone")})
	require.Error(t, err)
	require.NoError(t, svc.Delete(ctx, target.ID))
	require.Error(t, svc.Delete(ctx, target.ID))

	assert.Equal(t, []string{"created", "updated", "deleted"}, seen)
}

func TestDeleteUnknownTarget(t *testing.T) {
	svc, _ := newService(t)
	assert.ErrorIs(t, svc.Delete(context.Background(), uuid.New()), ErrTargetNotFound)
}

func TestNormalizeProfileURL(t *testing.T) {
	assert.Equal(t, "https://linkedin.com/in/a", NormalizeProfileURL("http://linkedin.com/in/a/"))
	assert.Equal(t, "https://www.linkedin.com/in/a_b-c", NormalizeProfileURL("https://www.linkedin.com/in/a_b-c"))
}

func TestLoadCatalog(t *testing.T) {
	cat, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, []string{TeamSalesEnterprise, TeamSalesPro, TeamBDR}, cat.Keys())

	path := filepath.Join(t.TempDir(), "teams.yaml")
	require.NoError(t, os.WriteFile(path, []byte("teams:\n  - key: BDR\n    display: Business Development\n  - key: Sales_Pro\n"), 0o600))
	cat, err = LoadCatalog(path)
	require.NoError(t, err)
	assert.True(t, cat.Contains("BDR"))
	assert.False(t, cat.Contains("bdr"))
	assert.Equal(t, "Business Development", cat.Display("BDR"))
	assert.Equal(t, "Sales_Pro", cat.Display("Sales_Pro"))

	dup := filepath.Join(t.TempDir(), "dup.yaml")
	require.NoError(t, os.WriteFile(dup, []byte("teams:\n  - key: BDR\n  - key: BDR\n"), 0o600))
	_, err = LoadCatalog(dup)
	assert.Error(t, err)
}
