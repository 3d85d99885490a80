package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/repository"
	"github.com/shida/shida-core/internal/testutil"
)

func seedLike(t *testing.T, database *gorm.DB, sender, receiver uint64, at time.Time) *db.Like {
	t.Helper()
	l := &db.Like{SenderID: sender, ReceiverID: receiver, CreatedAt: at}
	require.NoError(t, database.Create(l).Error)
	return l
}

func TestLikeCreateRejectsDuplicateDirection(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewDB(t)
	repo := repository.NewLikeRepository(database)

	require.NoError(t, repo.Create(ctx, &db.Like{SenderID: 1, ReceiverID: 2}))

	err := repo.Create(ctx, &db.Like{SenderID: 1, ReceiverID: 2})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// the reverse direction is a different edge
	assert.NoError(t, repo.Create(ctx, &db.Like{SenderID: 2, ReceiverID: 1}))
}

func TestLikeFindAndHasLiked(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewDB(t)
	repo := repository.NewLikeRepository(database)

	like, err := repo.Find(ctx, 1, 2)
	require.NoError(t, err)
	assert.Nil(t, like)

	seedLike(t, database, 1, 2, time.Now())

	like, err = repo.Find(ctx, 1, 2)
	require.NoError(t, err)
	require.NotNil(t, like)
	assert.False(t, like.IsMatch)

	ok, err := repo.HasLiked(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasLiked(ctx, 2, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetLikersExcludesMatchedAndPaginates(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewDB(t)
	repo := repository.NewLikeRepository(database)
	base := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

	// senders 1..5 liked 99, one minute apart; sender 3 is already a match
	for i := uint64(1); i <= 5; i++ {
		seedLike(t, database, i, 99, base.Add(time.Duration(i)*time.Minute))
	}
	matched, err := repo.Find(ctx, 3, 99)
	require.NoError(t, err)
	require.NoError(t, repo.MarkMatched(ctx, matched.ID))

	count, err := repo.CountLikers(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	page1, next, err := repo.GetLikers(ctx, 99, nil, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.NotNil(t, next)
	assert.Equal(t, uint64(5), page1[0].SenderID)
	assert.Equal(t, uint64(4), page1[1].SenderID)

	page2, next, err := repo.GetLikers(ctx, 99, next, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Nil(t, next)
	assert.Equal(t, uint64(2), page2[0].SenderID)
	assert.Equal(t, uint64(1), page2[1].SenderID)
}

func TestGetLikersInvalidToken(t *testing.T) {
	database := testutil.NewDB(t)
	repo := repository.NewLikeRepository(database)

	bad := "###"
	_, _, err := repo.GetLikers(context.Background(), 1, &bad, 10)
	assert.Error(t, err)
}

func TestCountSentSince(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewDB(t)
	repo := repository.NewLikeRepository(database)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	seedLike(t, database, 1, 2, now.Add(-2*time.Hour))
	seedLike(t, database, 1, 3, now.Add(-30*time.Hour))
	seedLike(t, database, 2, 3, now.Add(-time.Hour))

	n, err := repo.CountSentSince(ctx, 1, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
