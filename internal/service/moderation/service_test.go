package moderation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/app"
	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/errors"
	"github.com/shida/shida-core/internal/notify"
	"github.com/shida/shida-core/internal/service/moderation"
	"github.com/shida/shida-core/internal/testutil"
)

type fixture struct {
	svc   *moderation.Service
	db    *gorm.DB
	notes *notify.Recorder
	ctx   context.Context

	reporter, offender *db.User
	msg                *db.Message
}

func setupService(t *testing.T) *fixture {
	t.Helper()
	database := testutil.NewDB(t)
	notes := &notify.Recorder{}
	appCtx := app.New(database, nil, testutil.Logger())
	appCtx.Now = func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }
	appCtx.Notifier = notes

	f := &fixture{
		svc:   moderation.NewService(appCtx),
		db:    database,
		notes: notes,
		ctx:   context.Background(),
	}
	f.reporter = testutil.SeedUser(t, database, "reporter@test.com")
	f.offender = testutil.SeedUser(t, database, "offender@test.com")

	m := &db.Match{User1ID: f.reporter.ID, User2ID: f.offender.ID, IsActive: true}
	require.NoError(t, database.Create(m).Error)
	f.msg = &db.Message{MatchID: m.ID, SenderID: f.offender.ID, Content: "send me money now"}
	require.NoError(t, database.Create(f.msg).Error)
	return f
}

func uid(v uint64) *uint64 { return &v }

func TestCreateReportPriorities(t *testing.T) {
	f := setupService(t)

	cases := map[string]string{
		moderation.TypeUnderage:    moderation.PriorityCritical,
		moderation.TypeHarassment:  moderation.PriorityHigh,
		moderation.TypeScam:        moderation.PriorityHigh,
		moderation.TypeFakeProfile: moderation.PriorityMedium,
		"something_else":           moderation.PriorityMedium,
	}
	for typ, want := range cases {
		rep, err := f.svc.CreateReport(f.ctx, f.reporter.ID, moderation.ReportInput{
			ReportedUserID: uid(f.offender.ID),
			Type:           typ,
			Reason:         "  see profile ",
		})
		require.NoError(t, err, typ)
		assert.Equal(t, want, rep.Priority, typ)
		assert.Equal(t, db.ReportPending, rep.Status)
		assert.Equal(t, "see profile", rep.Reason)
	}

	var other db.Report
	require.NoError(t, f.db.Where("report_type = ?", moderation.TypeOther).Take(&other).Error)
}

func TestCreateReportTargets(t *testing.T) {
	f := setupService(t)

	_, err := f.svc.CreateReport(f.ctx, f.reporter.ID, moderation.ReportInput{Type: moderation.TypeSpam})
	assert.ErrorIs(t, err, moderation.ErrNoReportTarget)

	_, err = f.svc.CreateReport(f.ctx, f.reporter.ID, moderation.ReportInput{ReportedUserID: uid(f.reporter.ID), Type: moderation.TypeSpam})
	assert.ErrorIs(t, err, moderation.ErrSelfReport)

	_, err = f.svc.CreateReport(f.ctx, f.reporter.ID, moderation.ReportInput{ReportedMessageID: uid(404), Type: moderation.TypeSpam})
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))

	rep, err := f.svc.CreateReport(f.ctx, f.reporter.ID, moderation.ReportInput{ReportedMessageID: uid(f.msg.ID), Type: moderation.TypeScam})
	require.NoError(t, err)
	require.NotNil(t, rep.ReportedUserID)
	assert.Equal(t, f.offender.ID, *rep.ReportedUserID, "attributed to the sender")
}

func TestCreateReportRateLimited(t *testing.T) {
	f := setupService(t)

	for i := 0; i < 10; i++ {
		_, err := f.svc.CreateReport(f.ctx, f.reporter.ID, moderation.ReportInput{ReportedUserID: uid(f.offender.ID), Type: moderation.TypeSpam})
		require.NoError(t, err)
	}
	_, err := f.svc.CreateReport(f.ctx, f.reporter.ID, moderation.ReportInput{ReportedUserID: uid(f.offender.ID), Type: moderation.TypeSpam})
	assert.Equal(t, errors.KindRateLimited, errors.KindOf(err))
}

func TestPendingOrderAndFilter(t *testing.T) {
	f := setupService(t)
	for _, typ := range []string{moderation.TypeSpam, moderation.TypeUnderage, moderation.TypeHarassment} {
		_, err := f.svc.CreateReport(f.ctx, f.reporter.ID, moderation.ReportInput{ReportedUserID: uid(f.offender.ID), Type: typ})
		require.NoError(t, err)
	}

	all, err := f.svc.Pending(f.ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, moderation.PriorityCritical, all[0].Priority)

	high, err := f.svc.Pending(f.ctx, moderation.PriorityHigh, 10)
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, moderation.TypeHarassment, high[0].ReportType)
}

func TestResolveTemporaryBan(t *testing.T) {
	f := setupService(t)
	rep, err := f.svc.CreateReport(f.ctx, f.reporter.ID, moderation.ReportInput{ReportedUserID: uid(f.offender.ID), Type: moderation.TypeHarassment})
	require.NoError(t, err)

	require.NoError(t, f.svc.ResolveReport(f.ctx, rep.ID, 7, moderation.ResolveTemporaryBan, "insults"))

	u := testutil.ReloadUser(t, f.db, f.offender.ID)
	assert.True(t, u.IsBanned)
	assert.True(t, u.IsActive)
	assert.Contains(t, u.BanReason, "harassment")

	var stored db.Report
	require.NoError(t, f.db.First(&stored, rep.ID).Error)
	assert.Equal(t, db.ReportResolved, stored.Status)
	assert.Equal(t, moderation.ResolveTemporaryBan, stored.ActionTaken)

	var logs []db.AuditLog
	require.NoError(t, f.db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "report_resolved_temporary_ban", logs[0].Action)
	assert.Equal(t, "report", logs[0].TargetType)
	assert.Equal(t, rep.ID, logs[0].TargetID)
	assert.Equal(t, "Report resolved. Action: temporary_ban. Notes: insults", logs[0].Details)

	got := f.notes.ForUser(f.offender.ID)
	require.Len(t, got, 1)
	assert.Equal(t, notify.TypeModeration, got[0].Type)

	err = f.svc.ResolveReport(f.ctx, rep.ID, 7, moderation.ResolveDismissed, "")
	assert.ErrorIs(t, err, moderation.ErrReportResolved)
}

// Racing resolves of one report: one wins, the others see it resolved.
// The report row lock decides on MySQL; SQLite serializes the transactions.
func TestConcurrentResolveWritesOneAuditEntry(t *testing.T) {
	f := setupService(t)
	rep, err := f.svc.CreateReport(f.ctx, f.reporter.ID, moderation.ReportInput{ReportedUserID: uid(f.offender.ID), Type: moderation.TypeSpam})
	require.NoError(t, err)

	actions := []string{moderation.ResolveWarning, moderation.ResolveDismissed, moderation.ResolveTemporaryBan}
	errs := make([]error, len(actions))
	var wg sync.WaitGroup
	for i, action := range actions {
		wg.Add(1)
		go func(i int, action string) {
			defer wg.Done()
			errs[i] = f.svc.ResolveReport(f.ctx, rep.ID, uint64(10+i), action, "")
		}(i, action)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, moderation.ErrReportResolved)
	}
	assert.Equal(t, 1, won)

	var logs int64
	require.NoError(t, f.db.Model(&db.AuditLog{}).Where("target_id = ?", rep.ID).Count(&logs).Error)
	assert.Equal(t, int64(1), logs)
}

func TestResolvePermanentBanDeactivates(t *testing.T) {
	f := setupService(t)
	rep, err := f.svc.CreateReport(f.ctx, f.reporter.ID, moderation.ReportInput{ReportedUserID: uid(f.offender.ID), Type: moderation.TypeScam})
	require.NoError(t, err)

	require.NoError(t, f.svc.ResolveReport(f.ctx, rep.ID, 7, moderation.ResolvePermanentBan, ""))

	u := testutil.ReloadUser(t, f.db, f.offender.ID)
	assert.True(t, u.IsBanned)
	assert.False(t, u.IsActive)
	assert.Contains(t, u.BanReason, "Permanent ban")
}

func TestResolveContentRemoved(t *testing.T) {
	f := setupService(t)
	rep, err := f.svc.CreateReport(f.ctx, f.reporter.ID, moderation.ReportInput{ReportedMessageID: uid(f.msg.ID), Type: moderation.TypeScam})
	require.NoError(t, err)

	require.NoError(t, f.svc.ResolveReport(f.ctx, rep.ID, 7, moderation.ResolveContentRemoved, ""))

	var m db.Message
	require.NoError(t, f.db.First(&m, f.msg.ID).Error)
	assert.Equal(t, moderation.RemovedContent, m.Content)
	assert.True(t, m.IsFlagged)
	assert.False(t, testutil.ReloadUser(t, f.db, f.offender.ID).IsBanned)
	assert.Empty(t, f.notes.ForUser(f.offender.ID))
}

func TestResolveRejectsBadInput(t *testing.T) {
	f := setupService(t)
	assert.ErrorIs(t, f.svc.ResolveReport(f.ctx, 1, 7, "shadow_ban", ""), moderation.ErrInvalidResolve)
	assert.Equal(t, errors.KindNotFound, errors.KindOf(f.svc.ResolveReport(f.ctx, 404, 7, moderation.ResolveDismissed, "")))
}

func TestUnban(t *testing.T) {
	f := setupService(t)

	assert.ErrorIs(t, f.svc.Unban(f.ctx, f.offender.ID, 7, ""), errors.ErrNotBanned)
	assert.Equal(t, errors.KindNotFound, errors.KindOf(f.svc.Unban(f.ctx, 404, 7, "")))

	rep, err := f.svc.CreateReport(f.ctx, f.reporter.ID, moderation.ReportInput{ReportedUserID: uid(f.offender.ID), Type: moderation.TypeSpam})
	require.NoError(t, err)
	require.NoError(t, f.svc.ResolveReport(f.ctx, rep.ID, 7, moderation.ResolvePermanentBan, ""))

	require.NoError(t, f.svc.Unban(f.ctx, f.offender.ID, 7, "appeal accepted"))

	u := testutil.ReloadUser(t, f.db, f.offender.ID)
	assert.False(t, u.IsBanned)
	assert.True(t, u.IsActive)
	assert.Empty(t, u.BanReason)

	var last db.AuditLog
	require.NoError(t, f.db.Order("id DESC").First(&last).Error)
	assert.Equal(t, moderation.AuditUserUnbanned, last.Action)
	assert.Equal(t, "user", last.TargetType)
	assert.Contains(t, last.Details, "appeal accepted")
}

func TestStats(t *testing.T) {
	f := setupService(t)
	var first *db.Report
	for _, typ := range []string{moderation.TypeSpam, moderation.TypeSpam, moderation.TypeUnderage} {
		rep, err := f.svc.CreateReport(f.ctx, f.reporter.ID, moderation.ReportInput{ReportedUserID: uid(f.offender.ID), Type: typ})
		require.NoError(t, err)
		if first == nil {
			first = rep
		}
	}
	require.NoError(t, f.svc.ResolveReport(f.ctx, first.ID, 7, moderation.ResolveDismissed, ""))

	st, err := f.svc.Stats(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Total)
	assert.Equal(t, int64(2), st.Pending)
	assert.Equal(t, int64(1), st.Resolved)
	assert.Equal(t, int64(2), st.ByType[moderation.TypeSpam])
	assert.Equal(t, map[string]int64{moderation.PriorityMedium: 1, moderation.PriorityCritical: 1}, st.ByPriority)
}
