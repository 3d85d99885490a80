package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shida/shida-core/internal/db"
)

// ReportRepository covers user reports.
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(database *gorm.DB) *ReportRepository {
	return &ReportRepository{db: database}
}

func (r *ReportRepository) WithTx(tx *gorm.DB) *ReportRepository {
	return &ReportRepository{db: tx}
}

func (r *ReportRepository) Create(ctx context.Context, rep *db.Report) error {
	return r.db.WithContext(ctx).Create(rep).Error
}

// Get loads a report by id. Missing rows surface as gorm.ErrRecordNotFound.
func (r *ReportRepository) Get(ctx context.Context, id uint64) (*db.Report, error) {
	var rep db.Report
	if err := r.db.WithContext(ctx).Take(&rep, id).Error; err != nil {
		return nil, err
	}
	return &rep, nil
}

// GetForUpdate is Get with a row lock; run it inside the caller's
// transaction.
func (r *ReportRepository) GetForUpdate(ctx context.Context, id uint64) (*db.Report, error) {
	var rep db.Report
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&rep, id).Error
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// Pending lists unresolved reports, most urgent first then oldest first.
// A non-empty priority keeps only that priority.
func (r *ReportRepository) Pending(ctx context.Context, priority string, limit int) ([]db.Report, error) {
	var reps []db.Report
	query := r.db.WithContext(ctx).Where("status = ?", db.ReportPending)
	if priority != "" {
		query = query.Where("priority = ?", priority)
	}
	err := query.
		Order(`CASE priority
			WHEN 'critical' THEN 1
			WHEN 'high' THEN 2
			WHEN 'medium' THEN 3
			ELSE 4 END`).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&reps).Error
	return reps, err
}

// CountAgainstSince counts reports filed against userID after since.
func (r *ReportRepository) CountAgainstSince(ctx context.Context, userID uint64, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&db.Report{}).
		Where("reported_user_id = ? AND created_at > ?", userID, since.UTC()).
		Count(&n).Error
	return n, err
}

// Resolve closes a report with the admin's action.
func (r *ReportRepository) Resolve(ctx context.Context, id, adminID uint64, action, notes string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.Report{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           db.ReportResolved,
			"resolved_at":      at.UTC(),
			"resolved_by":      adminID,
			"resolution_notes": notes,
			"action_taken":     action,
		}).Error
}

type groupCount struct {
	Grp string
	N   int64
}

// countBy groups reports by column. column is never user input.
func (r *ReportRepository) countBy(ctx context.Context, column, status string) (map[string]int64, error) {
	var rows []groupCount
	query := r.db.WithContext(ctx).
		Model(&db.Report{}).
		Select(column + " AS grp, COUNT(*) AS n")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Group(column).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Grp] = row.N
	}
	return out, nil
}

// CountByStatus counts every report per status.
func (r *ReportRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return r.countBy(ctx, "status", "")
}

// CountByType counts every report per report type.
func (r *ReportRepository) CountByType(ctx context.Context) (map[string]int64, error) {
	return r.countBy(ctx, "report_type", "")
}

// CountPendingByPriority counts unresolved reports per priority.
func (r *ReportRepository) CountPendingByPriority(ctx context.Context) (map[string]int64, error) {
	return r.countBy(ctx, "priority", db.ReportPending)
}
