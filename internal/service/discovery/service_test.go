package discovery_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/app"
	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/errors"
	"github.com/shida/shida-core/internal/service/compat"
	"github.com/shida/shida-core/internal/service/discovery"
	"github.com/shida/shida-core/internal/testutil"
)

func setupService(t *testing.T) (*discovery.Service, *gorm.DB) {
	t.Helper()
	database := testutil.NewDB(t)
	appCtx := app.New(database, nil, testutil.Logger())
	appCtx.Now = func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }
	return discovery.NewService(appCtx, compat.NewService(appCtx, nil)), database
}

func names(cs []discovery.Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Profile.Name)
	}
	return out
}

func TestRankedByCompatibility(t *testing.T) {
	svc, database := setupService(t)
	me := testutil.SeedUser(t, database, "me@test.com")
	testutil.SeedProfile(t, database, me.ID, "Me", testutil.Attrs("Mariage", "Islam", "Goma", 30))

	far := testutil.SeedUser(t, database, "far@test.com")
	testutil.SeedProfile(t, database, far.ID, "Far", testutil.Attrs("Amitié", "Chrétienne", "Kinshasa", 60))
	near := testutil.SeedUser(t, database, "close@test.com")
	testutil.SeedProfile(t, database, near.ID, "Close", testutil.Attrs("Mariage", "Islam", "Goma", 31))
	mid := testutil.SeedUser(t, database, "mid@test.com")
	testutil.SeedProfile(t, database, mid.ID, "Mid", testutil.Attrs("Mariage", "Chrétienne", "Kinshasa", 30))

	got, err := svc.ListCandidates(context.Background(), me.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Close", "Mid", "Far"}, names(got))
	assert.Equal(t, 85.0, got[0].Score)
	assert.GreaterOrEqual(t, got[1].Score, got[2].Score)
}

func TestTiesKeepFetchOrderAndTruncate(t *testing.T) {
	svc, database := setupService(t)
	me := testutil.SeedUser(t, database, "me@test.com")
	testutil.SeedProfile(t, database, me.ID, "Me")

	for _, n := range []string{"A", "B", "C", "D"} {
		u := testutil.SeedUser(t, database, n+"@test.com")
		testutil.SeedProfile(t, database, u.ID, n)
	}

	got, err := svc.ListCandidates(context.Background(), me.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, names(got))
}

func TestNoRequesterProfileUsesFetchOrder(t *testing.T) {
	svc, database := setupService(t)
	me := testutil.SeedUser(t, database, "me@test.com")

	for _, n := range []string{"A", "B", "C"} {
		u := testutil.SeedUser(t, database, n+"@test.com")
		testutil.SeedProfile(t, database, u.ID, n, testutil.Attrs("Mariage", "", "", 25))
	}

	got, err := svc.ListCandidates(context.Background(), me.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names(got))
	assert.Zero(t, got[0].Score)
}

func TestExclusionsAndGhostVisibility(t *testing.T) {
	ctx := context.Background()
	svc, database := setupService(t)

	me := testutil.SeedUser(t, database, "me@test.com")
	vip := testutil.SeedUser(t, database, "vip@test.com", testutil.WithVIP("Gold"))
	liked := testutil.SeedUser(t, database, "liked@test.com")
	ghost := testutil.SeedUser(t, database, "ghost@test.com", testutil.WithGhostMode())
	open := testutil.SeedUser(t, database, "open@test.com")
	for _, u := range []*db.User{me, vip, liked, ghost, open} {
		testutil.SeedProfile(t, database, u.ID, u.Email)
	}
	require.NoError(t, database.Create(&db.Like{SenderID: me.ID, ReceiverID: liked.ID}).Error)

	got, err := svc.ListCandidates(ctx, me.ID, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vip@test.com", "open@test.com"}, names(got))
	for _, c := range got {
		assert.NotEqual(t, me.ID, c.Profile.UserID)
	}

	got, err = svc.ListCandidates(ctx, vip.ID, 10)
	require.NoError(t, err)
	assert.Contains(t, names(got), "ghost@test.com")
	assert.NotContains(t, names(got), "vip@test.com")
}

func TestExpiredVIPCannotSeeGhosts(t *testing.T) {
	svc, database := setupService(t)
	expired := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	vip := testutil.SeedUser(t, database, "vip@test.com", testutil.WithVIP("Gold"), func(u *db.User) {
		u.VIPExpiresAt = &expired
	})
	ghost := testutil.SeedUser(t, database, "ghost@test.com", testutil.WithGhostMode())
	testutil.SeedProfile(t, database, ghost.ID, "Ghost")

	got, err := svc.ListCandidates(context.Background(), vip.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUnknownRequester(t *testing.T) {
	svc, _ := setupService(t)
	_, err := svc.ListCandidates(context.Background(), 404, 10)
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
}
