// Package messaging delivers messages between matched users.
package messaging

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/app"
	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/errors"
	"github.com/shida/shida-core/internal/notify"
	"github.com/shida/shida-core/internal/repository"
	"github.com/shida/shida-core/internal/service/fraud"
	"github.com/shida/shida-core/internal/service/tokens"
)

const (
	ActionMessage = "message"

	MaxContentChars = 5000

	// Greeting is the fixed text of a paid greeting.
	Greeting = "Bonjour ! Ravi de faire votre connaissance 👋"

	flagReasonSize = 255
)

type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	matches  *repository.MatchRepository
	messages *repository.MessageRepository
	profiles *repository.ProfileRepository
	fraud    *fraud.Service
	tokens   *tokens.Service
}

func NewService(appCtx *app.AppContext, fraudSvc *fraud.Service, tokenSvc *tokens.Service) *Service {
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		matches:  repository.NewMatchRepository(appCtx.DB),
		messages: repository.NewMessageRepository(appCtx.DB),
		profiles: repository.NewProfileRepository(appCtx.DB),
		fraud:    fraudSvc,
		tokens:   tokenSvc,
	}
}

// partyMatch loads matchID and checks userID belongs to it. When
// requireActive is set an unmatched pair is reported as not found.
func (s *Service) partyMatch(ctx context.Context, matchID, userID uint64, requireActive bool) (*db.Match, error) {
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("match")
		}
		return nil, fmt.Errorf("load match: %w", err)
	}
	if requireActive && !m.IsActive {
		return nil, errors.NotFound("match")
	}
	if !m.HasParty(userID) {
		return nil, errors.ErrNotMatchParty
	}
	return m, nil
}

// SendMessage stores content from senderID in matchID.
//
// Behavior:
//   - Rate limited per sender ("message").
//   - Content is trimmed; empty or longer than 5000 characters is a
//     validation error.
//   - The match must exist and be active, and the sender must be one of
//     its users.
//   - The fraud verdict decides: block rejects with fraud_blocked, flag
//     stores the message marked with the matched flags.
//   - The other user is notified after the insert.
func (s *Service) SendMessage(ctx context.Context, matchID, senderID uint64, content string) (*db.Message, error) {
	s.appCtx.Logger.Debug("SendMessage called", "match_id", matchID, "sender_id", senderID)

	if err := s.appCtx.Throttle(senderID, ActionMessage); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.Validation("message content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentChars {
		return nil, errors.Validation(fmt.Sprintf("message exceeds %d characters", MaxContentChars))
	}

	m, err := s.partyMatch(ctx, matchID, senderID, true)
	if err != nil {
		return nil, err
	}

	verdict, err := s.fraud.ScoreMessage(ctx, content, senderID)
	if err != nil {
		return nil, err
	}
	if verdict.Action == fraud.ActionBlock {
		s.appCtx.Logger.Warn("message blocked", "match_id", matchID, "sender_id", senderID, "score", verdict.Score, "flags", verdict.Flags)
		return nil, errors.ErrMessageBlocked
	}

	msg := &db.Message{
		MatchID:   matchID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: s.appCtx.Clock(),
	}
	if verdict.Action == fraud.ActionFlag {
		msg.IsFlagged = true
		msg.FlagReason = truncate(strings.Join(verdict.Flags, ", "), flagReasonSize)
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	s.notifyMessage(ctx, m.Other(senderID), senderID, matchID)
	return msg, nil
}

// ListMessages returns the conversation oldest first and marks the
// messages from the other user as read. Inactive matches stay readable.
func (s *Service) ListMessages(ctx context.Context, matchID, userID uint64) ([]db.Message, error) {
	s.appCtx.Logger.Debug("ListMessages called", "match_id", matchID, "user_id", userID)

	if _, err := s.partyMatch(ctx, matchID, userID, false); err != nil {
		return nil, err
	}
	if err := s.messages.MarkRead(ctx, matchID, userID); err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	msgs, err := s.messages.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// GreetResult is the greeting sent and the balance left after paying it.
type GreetResult struct {
	Message         *db.Message
	TokensRemaining int64
}

// GreetMatch sends the paid opening message of userID in matchID.
//
// Behavior:
//   - Only a user who has not written in this match yet can greet;
//     otherwise already_greeted. The sender row is locked first, so two
//     concurrent greets of one user are serialized and one of them sees
//     the other's message.
//   - The greet_match cost is debited and the greeting stored in one
//     transaction; insufficient_tokens leaves nothing behind.
//
// Example:
//
//	svc.GreetMatch(ctx, 12, 7) // -> {Message: "Bonjour ! ...", TokensRemaining: 4}
func (s *Service) GreetMatch(ctx context.Context, matchID, userID uint64) (GreetResult, error) {
	s.appCtx.Logger.Debug("GreetMatch called", "match_id", matchID, "user_id", userID)

	m, err := s.partyMatch(ctx, matchID, userID, true)
	if err != nil {
		return GreetResult{}, err
	}

	msg := &db.Message{
		MatchID:   matchID,
		SenderID:  userID,
		Content:   Greeting,
		CreatedAt: s.appCtx.Clock(),
	}
	var spent tokens.SpendResult
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.users.WithTx(tx).Lock(ctx, userID)
		if err != nil {
			return fmt.Errorf("lock sender: %w", err)
		}
		if _, ok := locked[userID]; !ok {
			return errors.NotFound("user")
		}

		msgs := s.messages.WithTx(tx)
		n, err := msgs.CountBySender(ctx, matchID, userID)
		if err != nil {
			return fmt.Errorf("count sent messages: %w", err)
		}
		if n > 0 {
			return errors.ErrAlreadyGreeted
		}

		spent, err = s.tokens.SpendTx(ctx, tx, userID, tokens.ActionGreetMatch, fmt.Sprintf("Match greeting #%d", matchID))
		if err != nil {
			return err
		}
		if err := msgs.Create(ctx, msg); err != nil {
			return fmt.Errorf("create greeting: %w", err)
		}
		return nil
	})
	if err != nil {
		return GreetResult{}, err
	}

	s.tokens.AfterSpend(ctx, userID, tokens.ActionGreetMatch, spent)
	s.notifyMessage(ctx, m.Other(userID), userID, matchID)
	return GreetResult{Message: msg, TokensRemaining: spent.Remaining}, nil
}

func (s *Service) notifyMessage(ctx context.Context, recipientID, senderID, matchID uint64) {
	name := "Someone"
	p, err := s.profiles.GetByUserID(ctx, senderID)
	if err != nil {
		s.appCtx.Logger.Warn("failed to load sender profile", "user_id", senderID, "err", err)
	} else if p != nil {
		name = p.Name
	}
	s.appCtx.Notify(ctx, notify.Notification{
		UserID:    recipientID,
		Title:     "New message",
		Message:   name + " sent you a message.",
		Type:      notify.TypeMessage,
		ActionURL: fmt.Sprintf("/chat/%d", matchID),
	})
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
