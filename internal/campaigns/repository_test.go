package campaigns

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/testdb"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

func strPtr(v string) *string { return &v }

func TestFindApplicable(t *testing.T) {
	db := testdb.New(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("none", func(t *testing.T) {
		got, err := repo.FindApplicable(ctx, "brasileirao", now)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	other := testdb.Campaign(t, db, strPtr("europeus"), "40")
	global := testdb.Campaign(t, db, nil, "25")

	t.Run("global applies to any category", func(t *testing.T) {
		got, err := repo.FindApplicable(ctx, "brasileirao", now)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, global.ID, got.ID)
	})

	t.Run("targeted category ignored elsewhere", func(t *testing.T) {
		got, err := repo.FindApplicable(ctx, "", now)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.NotEqual(t, other.ID, got.ID)
	})

	targeted := testdb.Campaign(t, db, strPtr("brasileirao"), "30")

	t.Run("most recently created wins", func(t *testing.T) {
		got, err := repo.FindApplicable(ctx, "brasileirao", now)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, targeted.ID, got.ID)
	})

	t.Run("outside window", func(t *testing.T) {
		got, err := repo.FindApplicable(ctx, "brasileirao", now.Add(72*time.Hour))
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestFindApplicableSkipsInactive(t *testing.T) {
	db := testdb.New(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	inactive := &models.Campaign{Name: "paused", Active: false, StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour)}
	require.NoError(t, db.Create(inactive).Error)

	got, err := repo.FindApplicable(context.Background(), "brasileirao", now)
	require.NoError(t, err)
	assert.Nil(t, got)
}
