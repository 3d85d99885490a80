// Package moderation handles user reports and the admin actions taken on
// them. Every admin action leaves an audit log entry.
package moderation

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/app"
	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/errors"
	"github.com/shida/shida-core/internal/notify"
	"github.com/shida/shida-core/internal/repository"
)

const ActionReport = "report"

// Report types.
const (
	TypeInappropriate = "inappropriate_content"
	TypeHarassment    = "harassment"
	TypeFakeProfile   = "fake_profile"
	TypeSpam          = "spam"
	TypeScam          = "scam"
	TypeUnderage      = "underage"
	TypeOther         = "other"
)

var reportTypes = map[string]bool{
	TypeInappropriate: true,
	TypeHarassment:    true,
	TypeFakeProfile:   true,
	TypeSpam:          true,
	TypeScam:          true,
	TypeUnderage:      true,
	TypeOther:         true,
}

// Priorities.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Resolution actions.
const (
	ResolveWarning        = "warning_sent"
	ResolveContentRemoved = "content_removed"
	ResolveTemporaryBan   = "temporary_ban"
	ResolvePermanentBan   = "permanent_ban"
	ResolveDismissed      = "dismissed"
)

var resolutions = map[string]bool{
	ResolveWarning:        true,
	ResolveContentRemoved: true,
	ResolveTemporaryBan:   true,
	ResolvePermanentBan:   true,
	ResolveDismissed:      true,
}

const (
	AuditUserUnbanned = "user_unbanned"

	// RemovedContent replaces the text of a moderated message.
	RemovedContent = "[Message removed by moderation]"
)

var (
	ErrNoReportTarget  = errors.New(errors.KindValidation, "report_target_required", "a reported user or message is required")
	ErrReportResolved  = errors.New(errors.KindConflict, "report_resolved", "report already resolved")
	ErrInvalidResolve  = errors.New(errors.KindValidation, "invalid_action", "unknown resolution action")
	ErrSelfReport      = errors.New(errors.KindValidation, "self_report", "users cannot report themselves")
	defaultPendingSize = 50
)

type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	messages *repository.MessageRepository
	reports  *repository.ReportRepository
	audit    *repository.AuditRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		messages: repository.NewMessageRepository(appCtx.DB),
		reports:  repository.NewReportRepository(appCtx.DB),
		audit:    repository.NewAuditRepository(appCtx.DB),
	}
}

// PriorityFor maps a report type to its triage priority.
func PriorityFor(reportType string) string {
	switch reportType {
	case TypeUnderage:
		return PriorityCritical
	case TypeHarassment, TypeScam:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// ReportInput describes what is reported. At least one target is needed.
type ReportInput struct {
	ReportedUserID    *uint64
	ReportedMessageID *uint64
	Type              string
	Reason            string
}

// CreateReport files a report from reporterID.
//
// Behavior:
//   - Rate limited per reporter ("report").
//   - Unknown types are filed as "other"; the priority follows the type.
//   - A message-only report is attributed to the message's sender.
func (s *Service) CreateReport(ctx context.Context, reporterID uint64, in ReportInput) (*db.Report, error) {
	s.appCtx.Logger.Debug("CreateReport called", "reporter_id", reporterID, "type", in.Type)

	if err := s.appCtx.Throttle(reporterID, ActionReport); err != nil {
		return nil, err
	}
	if in.ReportedUserID == nil && in.ReportedMessageID == nil {
		return nil, ErrNoReportTarget
	}

	if in.ReportedMessageID != nil {
		msg, err := s.messages.Get(ctx, *in.ReportedMessageID)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.NotFound("message")
			}
			return nil, fmt.Errorf("load reported message: %w", err)
		}
		if in.ReportedUserID == nil {
			sender := msg.SenderID
			in.ReportedUserID = &sender
		}
	}
	if *in.ReportedUserID == reporterID {
		return nil, ErrSelfReport
	}

	typ := in.Type
	if !reportTypes[typ] {
		typ = TypeOther
	}
	rep := &db.Report{
		ReporterID:        reporterID,
		ReportedUserID:    in.ReportedUserID,
		ReportedMessageID: in.ReportedMessageID,
		ReportType:        typ,
		Reason:            strings.TrimSpace(in.Reason),
		Status:            db.ReportPending,
		Priority:          PriorityFor(typ),
		CreatedAt:         s.appCtx.Clock(),
	}
	if err := s.reports.Create(ctx, rep); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	s.appCtx.Logger.Info("report filed", "report_id", rep.ID, "type", typ, "priority", rep.Priority)
	return rep, nil
}

// Pending lists unresolved reports, most urgent first. An empty priority
// lists all of them; limit <= 0 means 50.
func (s *Service) Pending(ctx context.Context, priority string, limit int) ([]db.Report, error) {
	if limit <= 0 {
		limit = defaultPendingSize
	}
	reps, err := s.reports.Pending(ctx, priority, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending reports: %w", err)
	}
	return reps, nil
}

// Stats is the moderation dashboard summary.
type Stats struct {
	Total      int64
	Pending    int64
	Resolved   int64
	ByType     map[string]int64
	ByPriority map[string]int64
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	byStatus, err := s.reports.CountByStatus(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count by status: %w", err)
	}
	st := Stats{
		Pending:  byStatus[db.ReportPending],
		Resolved: byStatus[db.ReportResolved],
	}
	for _, n := range byStatus {
		st.Total += n
	}
	if st.ByType, err = s.reports.CountByType(ctx); err != nil {
		return Stats{}, fmt.Errorf("count by type: %w", err)
	}
	if st.ByPriority, err = s.reports.CountPendingByPriority(ctx); err != nil {
		return Stats{}, fmt.Errorf("count by priority: %w", err)
	}
	return st, nil
}

// ResolveReport closes reportID with action on behalf of adminID.
//
// Behavior:
//   - temporary_ban bans the reported user; permanent_ban also
//     deactivates the account.
//   - content_removed replaces the reported message's text and flags it.
//   - warning_sent and dismissed only close the report.
//   - The report, its side effect and the audit entry commit together.
//     The report row is locked first, so a concurrent resolve of the same
//     report fails with report_resolved.
//   - The reported user is told about warnings and bans.
func (s *Service) ResolveReport(ctx context.Context, reportID, adminID uint64, action, notes string) error {
	s.appCtx.Logger.Debug("ResolveReport called", "report_id", reportID, "admin_id", adminID, "action", action)

	if !resolutions[action] {
		return ErrInvalidResolve
	}
	now := s.appCtx.Clock()

	var rep *db.Report
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reports := s.reports.WithTx(tx)
		var err error
		rep, err = reports.GetForUpdate(ctx, reportID)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.NotFound("report")
			}
			return fmt.Errorf("load report: %w", err)
		}
		if rep.Status == db.ReportResolved {
			return ErrReportResolved
		}

		if err := reports.Resolve(ctx, reportID, adminID, action, notes, now); err != nil {
			return fmt.Errorf("resolve report: %w", err)
		}
		if err := s.apply(ctx, tx, rep, action); err != nil {
			return err
		}

		if notes == "" {
			notes = "none"
		}
		return s.audit.WithTx(tx).Append(ctx, &db.AuditLog{
			AdminID:    adminID,
			Action:     "report_resolved_" + action,
			TargetType: "report",
			TargetID:   reportID,
			Details:    fmt.Sprintf("Report resolved. Action: %s. Notes: %s", action, notes),
			CreatedAt:  now,
		})
	})
	if err != nil {
		return err
	}

	s.appCtx.Logger.Info("report resolved", "report_id", reportID, "admin_id", adminID, "action", action)
	s.notifyReported(ctx, rep, action)
	return nil
}

func (s *Service) apply(ctx context.Context, tx *gorm.DB, rep *db.Report, action string) error {
	now := s.appCtx.Clock()
	users := s.users.WithTx(tx)

	switch action {
	case ResolveTemporaryBan:
		if rep.ReportedUserID == nil {
			return nil
		}
		reason := fmt.Sprintf("Report #%d: %s", rep.ID, rep.ReportType)
		if err := users.Ban(ctx, *rep.ReportedUserID, reason, now, false); err != nil {
			return fmt.Errorf("ban user: %w", err)
		}
	case ResolvePermanentBan:
		if rep.ReportedUserID == nil {
			return nil
		}
		reason := fmt.Sprintf("Permanent ban - Report #%d: %s", rep.ID, rep.ReportType)
		if err := users.Ban(ctx, *rep.ReportedUserID, reason, now, true); err != nil {
			return fmt.Errorf("ban user: %w", err)
		}
	case ResolveContentRemoved:
		if rep.ReportedMessageID == nil {
			return nil
		}
		reason := fmt.Sprintf("Report #%d", rep.ID)
		if err := s.messages.WithTx(tx).Redact(ctx, *rep.ReportedMessageID, RemovedContent, reason); err != nil {
			return fmt.Errorf("redact message: %w", err)
		}
	}
	return nil
}

func (s *Service) notifyReported(ctx context.Context, rep *db.Report, action string) {
	if rep.ReportedUserID == nil {
		return
	}
	var msg string
	switch action {
	case ResolveWarning:
		msg = "Your behaviour was reported. Please respect the community rules."
	case ResolveTemporaryBan:
		msg = "Your account has been suspended following a report."
	case ResolvePermanentBan:
		msg = "Your account has been permanently closed following a report."
	default:
		return
	}
	s.appCtx.Notify(ctx, notify.Notification{
		UserID:  *rep.ReportedUserID,
		Title:   "Moderation notice",
		Message: msg,
		Type:    notify.TypeModeration,
	})
}

// Unban lifts the ban of userID and reactivates the account. Users who
// are not banned get not_banned.
func (s *Service) Unban(ctx context.Context, userID, adminID uint64, reason string) error {
	s.appCtx.Logger.Debug("Unban called", "user_id", userID, "admin_id", adminID)

	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		locked, err := users.Lock(ctx, userID)
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		u, ok := locked[userID]
		if !ok {
			return errors.NotFound("user")
		}
		if !u.IsBanned {
			return errors.ErrNotBanned
		}
		if err := users.Unban(ctx, userID); err != nil {
			return fmt.Errorf("unban user: %w", err)
		}

		if reason == "" {
			reason = "not specified"
		}
		return s.audit.WithTx(tx).Append(ctx, &db.AuditLog{
			AdminID:    adminID,
			Action:     AuditUserUnbanned,
			TargetType: "user",
			TargetID:   userID,
			Details:    "User unbanned. Reason: " + reason,
			CreatedAt:  s.appCtx.Clock(),
		})
	})
	if err != nil {
		return err
	}
	s.appCtx.Logger.Info("user unbanned", "user_id", userID, "admin_id", adminID)
	return nil
}
