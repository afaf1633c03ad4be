package posts

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/salespulse/platform/pkg/common/database/dbtest"
	"github.com/salespulse/platform/pkg/scoring"
	"github.com/salespulse/platform/pkg/targets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	posts   *Repository
	targets *targets.Repository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := dbtest.New(t)
	f := fixture{posts: NewRepository(db), targets: targets.NewRepository(db)}
	require.NoError(t, f.targets.AutoMigrate())
	require.NoError(t, f.posts.AutoMigrate())
	return f
}

func (f fixture) target(t *testing.T, name string) *targets.Target {
	t.Helper()
	tgt := &targets.Target{
		Name:        name,
		LinkedInURL: "https://linkedin.com/in/" + name,
		Team:        targets.TeamBDR,
		IsActive:    true,
	}
	require.NoError(t, f.targets.Create(context.Background(), tgt))
	return tgt
}

func newPost(targetID uuid.UUID, externalID string, likes, comments, reposts int, kind scoring.PostType, published time.Time) *Post {
	return &Post{
		TargetID:       targetID,
		ExternalPostID: externalID,
		PostURL:        "https://linkedin.com/feed/update/" + externalID,
		PostType:       kind,
		PublishedAt:    published,
		LikesCount:     likes,
		CommentsCount:  comments,
		RepostsCount:   reposts,
		ScrapedAt:      time.Now().UTC(),
	}
}

func TestInsertIfAbsentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jane := f.target(t, "jane")
	published := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	inserted, err := f.posts.InsertIfAbsent(ctx, newPost(jane.ID, "urn:1", 50, 10, 5, scoring.Original, published))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = f.posts.InsertIfAbsent(ctx, newPost(jane.ID, "urn:1", 60, 10, 5, scoring.Original, published))
	require.NoError(t, err)
	assert.False(t, inserted)

	stored, err := f.posts.GetByExternalID(ctx, "urn:1")
	require.NoError(t, err)
	assert.Equal(t, 87, stored.Score)
	assert.Equal(t, 50, stored.LikesCount)

	page, err := f.posts.Explore(ctx, ExploreQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Pagination.Total)
}

func TestUpdateEngagementRecomputesFromStoredType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jane := f.target(t, "jane")

	_, err := f.posts.InsertIfAbsent(ctx, newPost(jane.ID, "urn:r", 1, 1, 1, scoring.Repost, time.Now().UTC()))
	require.NoError(t, err)

	require.NoError(t, f.posts.UpdateEngagement(ctx, "urn:r", 10, 2, 1, time.Now().UTC()))

	stored, err := f.posts.GetByExternalID(ctx, "urn:r")
	require.NoError(t, err)
	assert.Equal(t, scoring.Score(10, 2, 1, scoring.Repost), stored.Score)
	assert.Equal(t, 18, stored.Score)
	assert.Equal(t, scoring.Repost, stored.PostType)

	assert.ErrorIs(t, f.posts.UpdateEngagement(ctx, "urn:missing", 1, 1, 1, time.Now()), ErrPostNotFound)
}

func TestExplorePaginatesSortsAndFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jane := f.target(t, "jane")
	john := f.target(t, "john")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 25; i++ {
		_, err := f.posts.InsertIfAbsent(ctx, newPost(jane.ID, fmt.Sprintf("jane-%02d", i), i, 0, 0, scoring.Original, start.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}
	_, err := f.posts.InsertIfAbsent(ctx, newPost(john.ID, "john-00", 1000, 0, 0, scoring.Original, start))
	require.NoError(t, err)

	first, err := f.posts.Explore(ctx, ExploreQuery{Page: 1})
	require.NoError(t, err)
	require.Len(t, first.Posts, PageSize)
	assert.Equal(t, "jane-24", first.Posts[0].ExternalPostID)
	assert.Equal(t, "jane", first.Posts[0].Target.Name)
	assert.Equal(t, Pagination{Page: 1, Limit: 20, Total: 26, TotalPages: 2, HasNext: true, HasPrev: false}, first.Pagination)

	second, err := f.posts.Explore(ctx, ExploreQuery{Page: 2})
	require.NoError(t, err)
	assert.Len(t, second.Posts, 6)
	assert.False(t, second.Pagination.HasNext)
	assert.True(t, second.Pagination.HasPrev)

	byScore, err := f.posts.Explore(ctx, ExploreQuery{Sort: SortScore})
	require.NoError(t, err)
	assert.Equal(t, "john-00", byScore.Posts[0].ExternalPostID)
	assert.Equal(t, 1002, byScore.Posts[0].Score)

	filtered, err := f.posts.Explore(ctx, ExploreQuery{TargetID: &john.ID})
	require.NoError(t, err)
	require.Len(t, filtered.Posts, 1)
	assert.Equal(t, john.ID, filtered.Posts[0].Target.ID)
}

func TestTopByTargetKeepsThreeHighest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jane := f.target(t, "jane")
	john := f.target(t, "john")
	now := time.Now().UTC()

	for i, likes := range []int{5, 50, 1, 20, 30} {
		_, err := f.posts.InsertIfAbsent(ctx, newPost(jane.ID, fmt.Sprintf("j%d", i), likes, 0, 0, scoring.Original, now))
		require.NoError(t, err)
	}
	_, err := f.posts.InsertIfAbsent(ctx, newPost(john.ID, "o1", 3, 0, 0, scoring.Repost, now))
	require.NoError(t, err)

	top, err := f.posts.TopByTarget(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top[jane.ID], 3)
	assert.Equal(t, []int{52, 32, 22}, []int{top[jane.ID][0].Score, top[jane.ID][1].Score, top[jane.ID][2].Score})
	require.Len(t, top[john.ID], 1)
	assert.Equal(t, 4, top[john.ID][0].Score)

	list, err := f.posts.ListByTarget(ctx, jane.ID, 0)
	require.NoError(t, err)
	assert.Len(t, list, 5)
	assert.Equal(t, 52, list[0].Score)
}

func TestDeletingTargetCascadesToPosts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jane := f.target(t, "jane")

	_, err := f.posts.InsertIfAbsent(ctx, newPost(jane.ID, "urn:c", 1, 0, 0, scoring.Original, time.Now().UTC()))
	require.NoError(t, err)
	require.NoError(t, f.targets.Delete(ctx, jane.ID))

	_, err = f.posts.GetByExternalID(ctx, "urn:c")
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestExploreHandler(t *testing.T) {
	f := newFixture(t)
	jane := f.target(t, "jane")
	_, err := f.posts.InsertIfAbsent(context.Background(), newPost(jane.ID, "urn:h", 1, 0, 0, scoring.Original, time.Now().UTC()))
	require.NoError(t, err)

	router := mux.NewRouter()
	NewHTTPHandler(f.posts).Register(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts?sort=score&user="+jane.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"external_post_id":"urn:h"`)
	assert.Contains(t, rec.Body.String(), `"totalPages":1`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts?user=nope", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
