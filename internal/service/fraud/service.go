// Package fraud scores messages, user behaviour and profiles against
// abuse heuristics. Scoring never mutates state; AutoBan is the only
// operation that acts on a verdict.
package fraud

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/app"
	"github.com/shida/shida-core/internal/domain"
	"github.com/shida/shida-core/internal/errors"
	"github.com/shida/shida-core/internal/repository"
)

// Message actions.
const (
	ActionAllow = "allow"
	ActionFlag  = "flag"
	ActionBlock = "block"
)

// Behaviour recommendations.
const (
	RecommendNone    = "none"
	RecommendMonitor = "monitor"
	RecommendReview  = "review"
	RecommendBan     = "ban"
)

const (
	patternPoints       = 10
	longMessagePoints   = 5
	shoutingPoints      = 5
	exclamationPoints   = 3
	messageBurstPoints  = 15
	repeatedTextPoints  = 20
	longMessageChars    = 2000
	shoutingMinChars    = 20
	maxExclamations     = 5
	messageBurstPerHour = 20
	repeatedTextCount   = 3

	flagThreshold  = 30
	blockThreshold = 50

	monitorThreshold = 30
	reviewThreshold  = 50
	banThreshold     = 80

	profileSuspicious = 30
)

type MessageVerdict struct {
	Score  int
	Flags  []string
	Action string
}

type BehaviorVerdict struct {
	Score       int
	Flags       []string
	Recommended string
	Suspicious  bool
}

type ProfileVerdict struct {
	Score      int
	Flags      []string
	Suspicious bool
}

type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	likes    *repository.LikeRepository
	messages *repository.MessageRepository
	reports  *repository.ReportRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		likes:    repository.NewLikeRepository(appCtx.DB),
		messages: repository.NewMessageRepository(appCtx.DB),
		reports:  repository.NewReportRepository(appCtx.DB),
	}
}

// ScoreContent applies the text-only heuristics.
func ScoreContent(content string) (int, []string) {
	if content == "" {
		return 0, nil
	}
	score := 0
	var flags []string

	lower := strings.ToLower(content)
	for _, p := range suspiciousPatterns {
		if p.re.MatchString(lower) {
			score += patternPoints
			flags = append(flags, "pattern:"+p.name)
		}
	}

	chars := utf8.RuneCountInString(content)
	if chars > longMessageChars {
		score += longMessagePoints
		flags = append(flags, "long_message")
	}
	if chars > shoutingMinChars && isShouting(content) {
		score += shoutingPoints
		flags = append(flags, "all_caps")
	}
	if strings.Count(content, "!") > maxExclamations {
		score += exclamationPoints
		flags = append(flags, "exclamations")
	}
	return score, flags
}

// isShouting is true when s has letters and none of them is lower case.
func isShouting(s string) bool {
	return strings.ToUpper(s) == s && strings.ToLower(s) != s
}

// MessageAction maps a score to allow/flag/block.
func MessageAction(score int) string {
	switch {
	case score >= blockThreshold:
		return ActionBlock
	case score >= flagThreshold:
		return ActionFlag
	default:
		return ActionAllow
	}
}

// ScoreMessage evaluates content about to be sent by senderID.
//
// Behavior:
//   - +10 per suspicious pattern, +5 over 2000 characters, +5 for long
//     all-caps text, +3 for more than five exclamation marks.
//   - +15 when the sender sent more than 20 messages in the last hour.
//   - +20 when the sender already sent the exact text 3 times or more.
//   - score >= 50 blocks, >= 30 flags, anything else is allowed.
//
// Example:
//
//	svc.ScoreMessage(ctx, "Envoyez de l'argent via Western Union maintenant!!!!!!", 7)
//	// -> {Score: 33, Action: "flag"}
func (s *Service) ScoreMessage(ctx context.Context, content string, senderID uint64) (MessageVerdict, error) {
	if content == "" {
		return MessageVerdict{Action: ActionAllow}, nil
	}
	score, flags := ScoreContent(content)

	recent, err := s.messages.CountSentSince(ctx, senderID, s.appCtx.Clock().Add(-time.Hour))
	if err != nil {
		return MessageVerdict{}, fmt.Errorf("count recent messages: %w", err)
	}
	if recent > messageBurstPerHour {
		score += messageBurstPoints
		flags = append(flags, "message_burst")
	}

	same, err := s.messages.CountIdentical(ctx, senderID, content)
	if err != nil {
		return MessageVerdict{}, fmt.Errorf("count identical messages: %w", err)
	}
	if same >= repeatedTextCount {
		score += repeatedTextPoints
		flags = append(flags, "repeated_text")
	}

	v := MessageVerdict{Score: score, Flags: flags, Action: MessageAction(score)}
	s.appCtx.Metrics.Fraud("message", v.Action)
	if v.Action != ActionAllow {
		s.appCtx.Logger.Info("message scored as suspicious", "sender_id", senderID, "score", score, "action", v.Action, "flags", flags)
	}
	return v, nil
}

// Recommendation maps a behaviour score to an advisory action.
func Recommendation(score int) string {
	switch {
	case score >= banThreshold:
		return RecommendBan
	case score >= reviewThreshold:
		return RecommendReview
	case score >= monitorThreshold:
		return RecommendMonitor
	default:
		return RecommendNone
	}
}

// ScoreUserBehavior rates recent activity of userID. It is advisory only.
//
// Behavior:
//   - Likes sent in 24h: more than 200 is +30, more than 100 is +15.
//   - Messages sent in 24h: more than 100 is +25.
//   - Reports received in 7 days: 3 or more is +40, at least one is +15.
//   - Account younger than 24h with more than 50 likes or 20 messages: +20.
//   - Recommendation: >= 80 ban, >= 50 review, >= 30 monitor, else none.
func (s *Service) ScoreUserBehavior(ctx context.Context, userID uint64) (BehaviorVerdict, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return BehaviorVerdict{}, errors.NotFound("user")
		}
		return BehaviorVerdict{}, fmt.Errorf("load user: %w", err)
	}

	now := s.appCtx.Clock()
	dayAgo := now.Add(-24 * time.Hour)
	score := 0
	var flags []string

	likes, err := s.likes.CountSentSince(ctx, userID, dayAgo)
	if err != nil {
		return BehaviorVerdict{}, fmt.Errorf("count likes: %w", err)
	}
	switch {
	case likes > 200:
		score += 30
		flags = append(flags, fmt.Sprintf("likes_24h:%d", likes))
	case likes > 100:
		score += 15
		flags = append(flags, fmt.Sprintf("likes_24h:%d", likes))
	}

	msgs, err := s.messages.CountSentSince(ctx, userID, dayAgo)
	if err != nil {
		return BehaviorVerdict{}, fmt.Errorf("count messages: %w", err)
	}
	if msgs > 100 {
		score += 25
		flags = append(flags, fmt.Sprintf("messages_24h:%d", msgs))
	}

	reports, err := s.reports.CountAgainstSince(ctx, userID, now.Add(-7*24*time.Hour))
	if err != nil {
		return BehaviorVerdict{}, fmt.Errorf("count reports: %w", err)
	}
	switch {
	case reports >= 3:
		score += 40
		flags = append(flags, fmt.Sprintf("reports_7d:%d", reports))
	case reports >= 1:
		score += 15
		flags = append(flags, fmt.Sprintf("reports_7d:%d", reports))
	}

	if user.CreatedAt.After(dayAgo) && (likes > 50 || msgs > 20) {
		score += 20
		flags = append(flags, "new_account_activity")
	}

	v := BehaviorVerdict{
		Score:       score,
		Flags:       flags,
		Recommended: Recommendation(score),
		Suspicious:  score >= reviewThreshold,
	}
	s.appCtx.Metrics.Fraud("behavior", v.Recommended)
	return v, nil
}

// CheckProfile rates a profile's completeness and bio content.
func CheckProfile(p domain.Profile) ProfileVerdict {
	score := 0
	var flags []string

	if p.PhotoURL == "" {
		score += 10
		flags = append(flags, "no_photo")
	}
	switch bio := utf8.RuneCountInString(p.Bio); {
	case bio == 0:
		score += 5
		flags = append(flags, "no_bio")
	case bio < 20:
		score += 3
		flags = append(flags, "short_bio")
	}

	if p.Bio != "" {
		lower := strings.ToLower(p.Bio)
		for _, pat := range suspiciousPatterns[:profilePatternCount] {
			if pat.re.MatchString(lower) {
				score += 15
				flags = append(flags, "bio_pattern:"+pat.name)
				break
			}
		}
	}

	if p.Age != 0 && (p.Age < 18 || p.Age > 100) {
		score += 30
		flags = append(flags, fmt.Sprintf("age:%d", p.Age))
	}

	return ProfileVerdict{Score: score, Flags: flags, Suspicious: score >= profileSuspicious}
}

// AutoBan re-scores userID and bans the account when the behaviour score
// reaches the ban threshold. It reports whether a ban was applied.
func (s *Service) AutoBan(ctx context.Context, userID uint64) (bool, BehaviorVerdict, error) {
	v, err := s.ScoreUserBehavior(ctx, userID)
	if err != nil {
		return false, BehaviorVerdict{}, err
	}
	if v.Score < banThreshold {
		return false, v, nil
	}

	reason := fmt.Sprintf("Automatic fraud detection. Score: %d. Flags: %s", v.Score, strings.Join(v.Flags, ", "))
	if err := s.users.Ban(ctx, userID, reason, s.appCtx.Clock(), false); err != nil {
		return false, v, fmt.Errorf("ban user: %w", err)
	}
	s.appCtx.Logger.Warn("user auto-banned", "user_id", userID, "score", v.Score, "flags", v.Flags)
	return true, v, nil
}
