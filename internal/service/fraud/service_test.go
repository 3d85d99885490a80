package fraud_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/app"
	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/domain"
	"github.com/shida/shida-core/internal/errors"
	"github.com/shida/shida-core/internal/service/fraud"
	"github.com/shida/shida-core/internal/testutil"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func setupService(t *testing.T) (*fraud.Service, *gorm.DB) {
	t.Helper()
	database := testutil.NewDB(t)
	appCtx := app.New(database, nil, testutil.Logger())
	appCtx.Now = func() time.Time { return now }
	return fraud.NewService(appCtx), database
}

func seedMessages(t *testing.T, database *gorm.DB, senderID uint64, n int, content string, at time.Time) {
	t.Helper()
	m := &db.Match{User1ID: senderID, User2ID: senderID + 1000, IsActive: true}
	require.NoError(t, database.Create(m).Error)
	for i := 0; i < n; i++ {
		require.NoError(t, database.Create(&db.Message{
			MatchID: m.ID, SenderID: senderID, Content: content, CreatedAt: at,
		}).Error)
	}
}

func seedLikes(t *testing.T, database *gorm.DB, senderID uint64, n int, at time.Time) {
	t.Helper()
	likes := make([]db.Like, 0, n)
	for i := 0; i < n; i++ {
		likes = append(likes, db.Like{SenderID: senderID, ReceiverID: uint64(10000 + i), CreatedAt: at})
	}
	require.NoError(t, database.CreateInBatches(likes, 100).Error)
}

func seedReports(t *testing.T, database *gorm.DB, against uint64, n int, at time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, database.Create(&db.Report{
			ReporterID: uint64(500 + i), ReportedUserID: &against, ReportType: "spam",
			Reason: "spam", Status: db.ReportPending, Priority: "medium", CreatedAt: at,
		}).Error)
	}
}

func TestScamMessageIsFlagged(t *testing.T) {
	svc, _ := setupService(t)

	v, err := svc.ScoreMessage(context.Background(), "Envoyez de l'argent via Western Union maintenant!!!!!!", 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, v.Score, 25)
	assert.Equal(t, 33, v.Score)
	assert.Equal(t, fraud.ActionFlag, v.Action)
	assert.Contains(t, v.Flags, "pattern:money_transfer")
	assert.Contains(t, v.Flags, "pattern:western_union")
	assert.Contains(t, v.Flags, "exclamations")
}

func TestCleanMessageIsAllowed(t *testing.T) {
	svc, _ := setupService(t)

	v, err := svc.ScoreMessage(context.Background(), "Bonjour, comment s'est passée ta journée ?", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Score)
	assert.Equal(t, fraud.ActionAllow, v.Action)

	v, err = svc.ScoreMessage(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Equal(t, fraud.ActionAllow, v.Action)
}

func TestManyPatternsBlock(t *testing.T) {
	svc, _ := setupService(t)

	v, err := svc.ScoreMessage(context.Background(), "Héritage: gagnant de la loterie, payez en bitcoin ou Western Union", 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, v.Score, 50)
	assert.Equal(t, fraud.ActionBlock, v.Action)
}

func TestContentHeuristics(t *testing.T) {
	score, flags := fraud.ScoreContent("THIS IS A VERY LOUD MESSAGE FOR YOU")
	assert.Equal(t, 5, score)
	assert.Equal(t, []string{"all_caps"}, flags)

	score, _ = fraud.ScoreContent("SHORT CAPS")
	assert.Equal(t, 0, score)

	score, flags = fraud.ScoreContent(strings.Repeat("a", 2001))
	assert.Equal(t, 5, score)
	assert.Equal(t, []string{"long_message"}, flags)

	score, _ = fraud.ScoreContent("wow!!!!!")
	assert.Equal(t, 0, score, "five marks is fine")
}

func TestSenderHistoryHeuristics(t *testing.T) {
	ctx := context.Background()
	svc, database := setupService(t)

	seedMessages(t, database, 1, 3, "coucou", now.Add(-2*time.Hour))
	v, err := svc.ScoreMessage(ctx, "coucou", 1)
	require.NoError(t, err)
	assert.Equal(t, 20, v.Score)
	assert.Contains(t, v.Flags, "repeated_text")

	seedMessages(t, database, 2, 21, "msg", now.Add(-10*time.Minute))
	v, err = svc.ScoreMessage(ctx, "hello there", 2)
	require.NoError(t, err)
	assert.Equal(t, 15, v.Score)
	assert.Contains(t, v.Flags, "message_burst")

	// old traffic is outside the hour window
	seedMessages(t, database, 3, 25, "msg", now.Add(-2*time.Hour))
	v, err = svc.ScoreMessage(ctx, "hello there", 3)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Score)
}

func TestMessageActionThresholds(t *testing.T) {
	assert.Equal(t, fraud.ActionAllow, fraud.MessageAction(29))
	assert.Equal(t, fraud.ActionFlag, fraud.MessageAction(30))
	assert.Equal(t, fraud.ActionFlag, fraud.MessageAction(49))
	assert.Equal(t, fraud.ActionBlock, fraud.MessageAction(50))
}

func TestRecommendationThresholds(t *testing.T) {
	assert.Equal(t, fraud.RecommendNone, fraud.Recommendation(29))
	assert.Equal(t, fraud.RecommendMonitor, fraud.Recommendation(30))
	assert.Equal(t, fraud.RecommendReview, fraud.Recommendation(50))
	assert.Equal(t, fraud.RecommendBan, fraud.Recommendation(80))
}

func TestBehaviorQuietUser(t *testing.T) {
	svc, database := setupService(t)
	u := testutil.SeedUser(t, database, "a@test.com", testutil.CreatedAt(now.Add(-30*24*time.Hour)))

	v, err := svc.ScoreUserBehavior(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Score)
	assert.Equal(t, fraud.RecommendNone, v.Recommended)
	assert.False(t, v.Suspicious)
}

func TestBehaviorReportsAndVolume(t *testing.T) {
	svc, database := setupService(t)
	u := testutil.SeedUser(t, database, "a@test.com", testutil.CreatedAt(now.Add(-30*24*time.Hour)))

	seedLikes(t, database, u.ID, 101, now.Add(-time.Hour))
	seedReports(t, database, u.ID, 1, now.Add(-24*time.Hour))
	seedReports(t, database, u.ID, 5, now.Add(-8*24*time.Hour)) // too old

	v, err := svc.ScoreUserBehavior(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, v.Score)
	assert.Equal(t, fraud.RecommendMonitor, v.Recommended)
}

func TestAutoBanOnlyAtThreshold(t *testing.T) {
	ctx := context.Background()
	svc, database := setupService(t)

	calm := testutil.SeedUser(t, database, "calm@test.com", testutil.CreatedAt(now.Add(-48*time.Hour)))
	seedReports(t, database, calm.ID, 3, now.Add(-time.Hour))

	banned, v, err := svc.AutoBan(ctx, calm.ID)
	require.NoError(t, err)
	assert.False(t, banned)
	assert.Equal(t, 40, v.Score)
	assert.False(t, testutil.ReloadUser(t, database, calm.ID).IsBanned)

	bot := testutil.SeedUser(t, database, "bot@test.com", testutil.CreatedAt(now.Add(-time.Hour)))
	seedLikes(t, database, bot.ID, 201, now.Add(-30*time.Minute))
	seedReports(t, database, bot.ID, 3, now.Add(-10*time.Minute))

	// scoring alone never bans
	v, err = svc.ScoreUserBehavior(ctx, bot.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, v.Score)
	assert.Equal(t, fraud.RecommendBan, v.Recommended)
	assert.False(t, testutil.ReloadUser(t, database, bot.ID).IsBanned)

	banned, _, err = svc.AutoBan(ctx, bot.ID)
	require.NoError(t, err)
	assert.True(t, banned)
	got := testutil.ReloadUser(t, database, bot.ID)
	assert.True(t, got.IsBanned)
	assert.Contains(t, got.BanReason, "Score: 90")
}

func TestBehaviorUnknownUser(t *testing.T) {
	svc, _ := setupService(t)
	_, err := svc.ScoreUserBehavior(context.Background(), 404)
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
}

func TestCheckProfile(t *testing.T) {
	v := fraud.CheckProfile(domain.Profile{Age: 25, PhotoURL: "https://cdn/x.jpg", Bio: "J'aime la musique et les voyages."})
	assert.Equal(t, 0, v.Score)
	assert.False(t, v.Suspicious)

	v = fraud.CheckProfile(domain.Profile{Age: 25})
	assert.Equal(t, 15, v.Score)
	assert.ElementsMatch(t, []string{"no_photo", "no_bio"}, v.Flags)

	v = fraud.CheckProfile(domain.Profile{Age: 25, PhotoURL: "x", Bio: "Salut"})
	assert.Equal(t, 3, v.Score)

	v = fraud.CheckProfile(domain.Profile{Age: 16, PhotoURL: "x", Bio: "Envoie de l'argent par Western Union svp"})
	assert.Equal(t, 45, v.Score, "one bio pattern counted once plus age")
	assert.True(t, v.Suspicious)
}
