package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempbox/internal/domain/model"
)

func TestDomainCacheRepo_PutGetRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDomainCacheRepo(db)
	ctx := context.Background()

	entry := model.DomainCacheEntry{
		Domains:        []string{"fresh.example", "old.example"},
		FeaturedDomain: "fresh.example",
		FetchedOnDate:  "2025-06-01",
	}
	require.NoError(t, repo.Put(ctx, entry))

	loaded, err := repo.Get(ctx, "2025-06-01")

	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, entry.Domains, loaded.Domains)
	assert.Equal(t, "fresh.example", loaded.FeaturedDomain)
	assert.True(t, loaded.IsFreshOn("2025-06-01"))
	assert.False(t, loaded.IsFreshOn("2025-06-02"))
}

func TestDomainCacheRepo_GetMissingDate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDomainCacheRepo(db)

	loaded, err := repo.Get(context.Background(), "2025-06-01")

	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestDomainCacheRepo_PutDiscardsPriorDays(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDomainCacheRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, model.DomainCacheEntry{
		Domains:        []string{"a.example"},
		FeaturedDomain: "a.example",
		FetchedOnDate:  "2025-06-01",
	}))
	require.NoError(t, repo.Put(ctx, model.DomainCacheEntry{
		Domains:        []string{"b.example"},
		FeaturedDomain: "b.example",
		FetchedOnDate:  "2025-06-02",
	}))

	stale, err := repo.Get(ctx, "2025-06-01")
	require.NoError(t, err)
	assert.Nil(t, stale, "prior-day entries are pruned on write")

	var count int
	require.NoError(t, db.Reader.QueryRow(`SELECT COUNT(*) FROM domain_cache`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestDomainCacheRepo_PutReplacesSameDay(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDomainCacheRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, model.DomainCacheEntry{
		Domains:        []string{"a.example"},
		FeaturedDomain: "a.example",
		FetchedOnDate:  "2025-06-01",
	}))
	require.NoError(t, repo.Put(ctx, model.DomainCacheEntry{
		Domains:        []string{"b.example", "a.example"},
		FeaturedDomain: "b.example",
		FetchedOnDate:  "2025-06-01",
	}))

	loaded, err := repo.Get(ctx, "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, "b.example", loaded.FeaturedDomain)
}
