package db

import (
	"time"

	"gorm.io/datatypes"

	"github.com/shida/shida-core/internal/domain"
)

// User is the account record. Tokens is the authoritative balance; the
// token_transactions table is its audit trail.
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Email        string `gorm:"uniqueIndex;size:120;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	LastLoginAt  *time.Time

	IsVIP        bool   `gorm:"not null"`
	VIPType      string `gorm:"size:20;not null;default:free"`
	VIPExpiresAt *time.Time
	Tokens       int64 `gorm:"not null"`
	GhostMode    bool  `gorm:"not null"`

	IsActive  bool `gorm:"not null;index"`
	IsBanned  bool `gorm:"not null;index"`
	BanReason string
	BannedAt  *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// VIPActive reports whether the user currently holds an unexpired VIP tier.
func (u *User) VIPActive(now time.Time) bool {
	if !u.IsVIP {
		return false
	}
	return u.VIPExpiresAt == nil || u.VIPExpiresAt.After(now)
}

// Profile belongs to exactly one user.
//
// JSON columns:
//   - Photos: ["https://...", ...]
//   - Interests: ["music", "travel"]
//   - WeeklyViews: 7 counters, UTC weekday, Monday = 0
type Profile struct {
	ID                 uint64 `gorm:"primaryKey;autoIncrement"`
	UserID             uint64 `gorm:"uniqueIndex;not null"`
	Name               string `gorm:"size:100;not null"`
	Age                int    `gorm:"not null"`
	Bio                string `gorm:"type:text"`
	PhotoURL           string `gorm:"size:500"`
	Photos             datatypes.JSON
	Religion           string `gorm:"size:50"`
	Tribe              string `gorm:"size:50"`
	Profession         string `gorm:"size:100"`
	Objective          string `gorm:"size:50"`
	Interests          datatypes.JSON
	Location           string `gorm:"size:100"`
	ViewsCount         int64  `gorm:"not null"`
	WeeklyViews        datatypes.JSON
	IsVerified         bool   `gorm:"not null"`
	VerificationPhoto  string `gorm:"size:500"`
	VerificationStatus string `gorm:"size:20;not null;default:pending"`
	IsApproved         bool   `gorm:"not null;index"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Like is a directed sender -> receiver edge.
//
// Indexes:
//   - idx_like_pair (sender_id, receiver_id) UNIQUE: one like per direction,
//     and the race backstop for concurrent duplicate likes.
//   - idx_like_receiver_match_created (receiver_id, is_match, created_at):
//     "who liked me" listings and counts.
type Like struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	SenderID   uint64    `gorm:"not null;uniqueIndex:idx_like_pair,priority:1"`
	ReceiverID uint64    `gorm:"not null;uniqueIndex:idx_like_pair,priority:2;index:idx_like_receiver_match_created,priority:1"`
	IsMatch    bool      `gorm:"not null;index:idx_like_receiver_match_created,priority:2"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_like_receiver_match_created,priority:3,sort:desc"`
}

// Match is an undirected pairing. The pair is stored normalized
// (User1ID < User2ID) so the unique index covers both orders.
type Match struct {
	ID                 uint64    `gorm:"primaryKey;autoIncrement"`
	User1ID            uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:1"`
	User2ID            uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:2;index"`
	CompatibilityScore float64   `gorm:"not null"`
	IsActive           bool      `gorm:"not null"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`

	Messages []Message `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
}

// HasParty reports whether userID is one of the two matched users.
func (m *Match) HasParty(userID uint64) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// Other returns the counterpart of userID.
func (m *Match) Other(userID uint64) uint64 {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// OrderedPair normalizes a pair so the lower id comes first.
func OrderedPair(a, b uint64) (uint64, uint64) {
	if a < b {
		return a, b
	}
	return b, a
}

type Message struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	MatchID    uint64    `gorm:"not null;index:idx_message_match_created,priority:1"`
	SenderID   uint64    `gorm:"not null;index:idx_message_sender_created,priority:1"`
	Content    string    `gorm:"type:text;not null"`
	IsRead     bool      `gorm:"not null"`
	IsFlagged  bool      `gorm:"not null"`
	FlagReason string    `gorm:"size:255"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_message_match_created,priority:2;index:idx_message_sender_created,priority:2"`
}

// Transaction types recorded in the ledger.
const (
	TxTypeUse               = "use"
	TxTypePurchase          = "purchase"
	TxTypePromo             = "promo"
	TxTypeSubscriptionBonus = "subscription_bonus"
	TxTypeBonus             = "bonus"
)

// TokenTransaction is an immutable ledger entry. Amount is signed.
type TokenTransaction struct {
	ID               uint64 `gorm:"primaryKey;autoIncrement"`
	UserID           uint64 `gorm:"not null;index:idx_ledger_user_desc,priority:1"`
	Amount           int64  `gorm:"not null"`
	TransactionType  string `gorm:"size:50;not null"`
	Description      string `gorm:"size:255;index:idx_ledger_user_desc,priority:2"`
	Price            *float64
	PaymentMethod    string    `gorm:"size:50"`
	PaymentReference string    `gorm:"size:200"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

// MatchingConfig is a named weight vector. At most one row is active.
type MatchingConfig struct {
	ID               uint64  `gorm:"primaryKey;autoIncrement"`
	Name             string  `gorm:"size:100;not null"`
	ReligionWeight   float64 `gorm:"not null"`
	LocationWeight   float64 `gorm:"not null"`
	ObjectiveWeight  float64 `gorm:"not null"`
	ProfessionWeight float64 `gorm:"not null"`
	AgeWeight        float64 `gorm:"not null"`
	InterestsWeight  float64 `gorm:"not null"`
	IsActive         bool    `gorm:"not null;index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (c MatchingConfig) Weights() domain.Weights {
	return domain.Weights{
		Religion:   c.ReligionWeight,
		Location:   c.LocationWeight,
		Objective:  c.ObjectiveWeight,
		Profession: c.ProfessionWeight,
		Age:        c.AgeWeight,
		Interests:  c.InterestsWeight,
	}
}

// Promo code discount kinds.
const (
	PromoTokens  = "tokens"
	PromoTrial   = "trial"
	PromoPercent = "percent"
)

type PromoCode struct {
	ID            uint64  `gorm:"primaryKey;autoIncrement"`
	Code          string  `gorm:"uniqueIndex;size:50;not null"`
	DiscountType  string  `gorm:"size:20;not null"`
	DiscountValue float64 `gorm:"not null"`
	// MaxUses of 0 means unlimited.
	MaxUses     int `gorm:"not null"`
	CurrentUses int `gorm:"not null"`
	ValidFrom   *time.Time
	ValidUntil  *time.Time
	IsActive    bool `gorm:"not null"`
	CreatedAt   time.Time
}

// Pricing plan kinds.
const (
	PlanTokens       = "tokens"
	PlanSubscription = "subscription"
)

type PricingPlan struct {
	ID             uint64  `gorm:"primaryKey;autoIncrement"`
	Name           string  `gorm:"size:100;not null"`
	PlanType       string  `gorm:"size:50;not null"`
	Price          float64 `gorm:"not null"`
	Currency       string  `gorm:"size:10;not null;default:USD"`
	DurationDays   int
	TokensIncluded int64
	IsActive       bool `gorm:"not null"`
	CreatedAt      time.Time
}

// Subscription statuses.
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
)

type Subscription struct {
	ID               uint64  `gorm:"primaryKey;autoIncrement"`
	UserID           uint64  `gorm:"not null;index"`
	PlanID           uint64  `gorm:"not null"`
	PlanName         string  `gorm:"size:100;not null"`
	Price            float64 `gorm:"not null"`
	Currency         string  `gorm:"size:10;not null"`
	PaymentMethod    string  `gorm:"size:50"`
	PaymentReference string  `gorm:"size:200"`
	Status           string  `gorm:"size:20;not null;index"`
	StartsAt         time.Time
	ExpiresAt        *time.Time
	AutoRenew        bool
	CreatedAt        time.Time
}

type Notification struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	EventID   string `gorm:"uniqueIndex;size:36;not null"`
	UserID    uint64 `gorm:"not null;index"`
	Title     string `gorm:"size:200;not null"`
	Message   string `gorm:"type:text;not null"`
	Type      string `gorm:"size:50;not null"`
	ActionURL string `gorm:"size:500"`
	IsRead    bool   `gorm:"not null"`
	CreatedAt time.Time
}

// Report statuses.
const (
	ReportPending  = "pending"
	ReportResolved = "resolved"
)

type Report struct {
	ID                uint64  `gorm:"primaryKey;autoIncrement"`
	ReporterID        uint64  `gorm:"not null"`
	ReportedUserID    *uint64 `gorm:"index:idx_report_user_created,priority:1"`
	ReportedMessageID *uint64
	ReportType        string    `gorm:"size:50;not null"`
	Reason            string    `gorm:"type:text;not null"`
	Status            string    `gorm:"size:20;not null;index"`
	Priority          string    `gorm:"size:20;not null"`
	CreatedAt         time.Time `gorm:"index:idx_report_user_created,priority:2"`
	ResolvedAt        *time.Time
	ResolvedBy        *uint64
	ResolutionNotes   string `gorm:"type:text"`
	ActionTaken       string `gorm:"size:50"`
}

type AuditLog struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	AdminID    uint64 `gorm:"not null;index"`
	Action     string `gorm:"size:100;not null"`
	TargetType string `gorm:"size:50"`
	TargetID   uint64
	Details    string `gorm:"type:text"`
	CreatedAt  time.Time
}

// AllModels lists every table in migration order.
func AllModels() []any {
	return []any{
		&User{},
		&Profile{},
		&Like{},
		&Match{},
		&Message{},
		&TokenTransaction{},
		&MatchingConfig{},
		&PromoCode{},
		&PricingPlan{},
		&Subscription{},
		&Notification{},
		&Report{},
		&AuditLog{},
	}
}
