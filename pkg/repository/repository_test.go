package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/landedcost/pkg/db/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID   int64 `gorm:"primaryKey;autoIncrement:false"`
	Code string
	Size int
}

func openStore(t *testing.T) Repository[widget] {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&widget{}))
	return ProvideStore[widget](conn)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	for _, w := range []*widget{
		{ID: 3, Code: "c", Size: 1},
		{ID: 1, Code: "a", Size: 5},
		{ID: 2, Code: "b", Size: 5},
	} {
		require.NoError(t, store.Create(ctx, w))
	}

	found, err := store.FindOne(ctx, &widget{Code: "b"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, int64(2), found.ID)

	missing, err := store.FindOne(ctx, &widget{Code: "zzz"})
	require.NoError(t, err)
	assert.Nil(t, missing)

	byIDs, err := store.FindByIDs(ctx, []int64{3, 1})
	require.NoError(t, err)
	require.Len(t, byIDs, 2)
	assert.Equal(t, int64(1), byIDs[0].ID)
	assert.Equal(t, int64(3), byIDs[1].ID)

	sorted, err := store.Find(ctx, &widget{Size: 5}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "code",
		OrderBy: "desc",
		Allow:   map[string]bool{"code": true},
	}))
	require.NoError(t, err)
	require.Len(t, sorted, 2)
	assert.Equal(t, "b", sorted[0].Code)
	assert.Equal(t, "a", sorted[1].Code)

	limited, err := store.Find(ctx, &widget{}, option.ApplyOperator(option.Condition{Field: "size", Operator: option.LT, Value: 5}), option.WithLimit(10))
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "c", limited[0].Code)
}
