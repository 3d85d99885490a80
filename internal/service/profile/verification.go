package profile

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/domain"
	"github.com/shida/shida-core/internal/errors"
	"github.com/shida/shida-core/internal/notify"
)

// Audit actions written by the verification workflow.
const (
	AuditVerificationApproved = "verification_approved"
	AuditVerificationRejected = "verification_rejected"
)

// SubmitVerification records photoURL as userID's verification photo and
// puts the profile back in the review queue.
func (s *Service) SubmitVerification(ctx context.Context, userID uint64, photoURL string) error {
	if err := profileValidate.Var(photoURL, "required,max=500,http_url"); err != nil {
		return errors.New(errors.KindValidation, "invalid_photo_url", "verification photo must be an http(s) URL")
	}

	p, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if p == nil {
		return errors.NotFound("profile")
	}
	if p.IsVerified {
		return errors.ErrAlreadyVerified
	}

	if err := s.profiles.UpdateFields(ctx, userID, map[string]any{
		"verification_photo":  photoURL,
		"verification_status": string(domain.VerificationPending),
	}); err != nil {
		return fmt.Errorf("store verification photo: %w", err)
	}
	s.appCtx.Logger.Info("verification submitted", "user_id", userID)
	return nil
}

// PendingVerifications lists profiles waiting for review. limit <= 0
// means 50.
func (s *Service) PendingVerifications(ctx context.Context, limit int) ([]domain.Profile, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.profiles.PendingVerification(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending verifications: %w", err)
	}
	out := make([]domain.Profile, len(rows))
	for i := range rows {
		out[i] = rows[i].Domain()
	}
	return out, nil
}

// ApproveVerification marks userID's profile verified. A non-zero adminID
// is written to the audit log in the same transaction.
func (s *Service) ApproveVerification(ctx context.Context, userID, adminID uint64) error {
	return s.review(ctx, userID, adminID, true, "")
}

// RejectVerification refuses the submitted photo and clears it so the
// user can submit a new one.
func (s *Service) RejectVerification(ctx context.Context, userID, adminID uint64, reason string) error {
	return s.review(ctx, userID, adminID, false, reason)
}

func (s *Service) review(ctx context.Context, userID, adminID uint64, approved bool, reason string) error {
	s.appCtx.Logger.Debug("verification review", "user_id", userID, "admin_id", adminID, "approved", approved)

	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profiles := s.profiles.WithTx(tx)
		p, err := profiles.GetByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}
		if p == nil {
			return errors.NotFound("profile")
		}

		cols := map[string]any{"verification_status": string(domain.VerificationRejected), "verification_photo": ""}
		action := AuditVerificationRejected
		if reason == "" {
			reason = "not specified"
		}
		details := fmt.Sprintf("Verification rejected for %s. Reason: %s", p.Name, reason)
		if approved {
			cols = map[string]any{"verification_status": string(domain.VerificationApproved), "is_verified": true}
			action = AuditVerificationApproved
			details = fmt.Sprintf("Verification approved for %s", p.Name)
		}

		if err := profiles.UpdateFields(ctx, userID, cols); err != nil {
			return fmt.Errorf("update verification: %w", err)
		}
		if adminID == 0 {
			return nil
		}
		return s.audit.WithTx(tx).Append(ctx, &db.AuditLog{
			AdminID:    adminID,
			Action:     action,
			TargetType: "user",
			TargetID:   userID,
			Details:    details,
			CreatedAt:  s.appCtx.Clock(),
		})
	})
	if err != nil {
		return err
	}

	n := notify.Notification{
		UserID:    userID,
		Title:     "Verification refused",
		Message:   "Your verification request was refused. Please submit a new photo.",
		Type:      notify.TypeVerification,
		ActionURL: "/profile",
	}
	if approved {
		n.Title = "Profile verified!"
		n.Message = "Congratulations! Your profile is verified and now shows the verification badge."
	}
	s.appCtx.Notify(ctx, n)
	return nil
}
