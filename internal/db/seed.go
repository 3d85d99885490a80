package db

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/domain"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password"

var (
	demoNames = []string{
		"Amani", "Grâce", "Benedict", "Divine", "Patrick", "Esther", "Jonas", "Merveille", "Christian", "Sarah",
		"Fiston", "Nadège", "Héritier", "Ruth", "Cédric", "Prisca", "Junior", "Rachel", "Didier", "Naomie",
	}
	demoCities      = []string{"Kinshasa", "Lubumbashi", "Goma", "Bukavu", "Kisangani"}
	demoReligions   = []string{"Chrétienne", "Catholique", "Protestante", "Musulmane", "Kimbanguiste"}
	demoProfessions = []string{"Médecin", "Enseignant", "Ingénieur", "Commerçant", "Juriste", "Infirmière"}
	demoInterests   = []string{"musique", "voyage", "cuisine", "football", "lecture", "danse", "cinéma", "église"}
)

// demoTables are cleared children first so foreign keys hold on MySQL.
var demoTables = []string{
	"audit_logs", "reports", "notifications", "subscriptions", "token_transactions",
	"messages", "matches", "likes", "profiles", "users",
	"matching_configs", "promo_codes", "pricing_plans",
}

// SeedDemoData resets the database and loads a small demo community.
//
// Behavior:
//  1. Clears every table and resets auto-increment counters.
//  2. Creates 20 active users sharing DemoPassword, each with an approved
//     profile. Every fourth user holds a 30 day Gold VIP.
//  3. Activates the default matching weights and loads the stock pricing
//     plans and promo codes.
//
// The seeded profiles are returned so callers can drive swipes through the
// matching service. Works on MySQL and SQLite.
func SeedDemoData(db *gorm.DB, signupTokens int64, logger *slog.Logger) ([]Profile, error) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now().UTC()

	for _, table := range demoTables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
		switch db.Dialector.Name() {
		case "mysql":
			db.Exec("ALTER TABLE " + table + " AUTO_INCREMENT = 1")
		case "sqlite":
			db.Exec("DELETE FROM sqlite_sequence WHERE name = ?", table)
		}
	}
	logger.Info("cleared existing data", "tables", len(demoTables))

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var profiles []Profile
	err = db.Transaction(func(tx *gorm.DB) error {
		for i, name := range demoNames {
			lastLogin := now.Add(-time.Duration(r.Intn(500)) * time.Hour)
			user := User{
				Email:        fmt.Sprintf("user%d@shida.cd", i+1),
				PasswordHash: string(hash),
				LastLoginAt:  &lastLogin,
				VIPType:      "free",
				Tokens:       signupTokens,
				IsActive:     true,
			}
			if i%4 == 3 {
				expires := now.AddDate(0, 0, 30)
				user.IsVIP = true
				user.VIPType = "Gold"
				user.VIPExpiresAt = &expires
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to seed user: %w", err)
			}

			p := Profile{UserID: user.ID}
			p.ApplyDomain(demoProfile(r, name))
			p.IsApproved = true
			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("failed to seed profile: %w", err)
			}
			profiles = append(profiles, p)
		}

		w := domain.DefaultWeights
		cfg := MatchingConfig{
			Name:             "default",
			ReligionWeight:   w.Religion,
			LocationWeight:   w.Location,
			ObjectiveWeight:  w.Objective,
			ProfessionWeight: w.Profession,
			AgeWeight:        w.Age,
			InterestsWeight:  w.Interests,
			IsActive:         true,
		}
		if err := tx.Create(&cfg).Error; err != nil {
			return fmt.Errorf("failed to seed matching config: %w", err)
		}

		if err := tx.Create(demoPlans()).Error; err != nil {
			return fmt.Errorf("failed to seed plans: %w", err)
		}
		if err := tx.Create(demoPromos(now)).Error; err != nil {
			return fmt.Errorf("failed to seed promo codes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("seeded demo community", "users", len(profiles))
	return profiles, nil
}

func demoProfile(r *rand.Rand, name string) domain.Profile {
	interests := make([]string, 0, 3)
	for _, idx := range r.Perm(len(demoInterests))[:3] {
		interests = append(interests, demoInterests[idx])
	}
	return domain.Profile{
		Name:               name,
		Age:                21 + r.Intn(25),
		Bio:                fmt.Sprintf("Je suis %s, à la recherche d'une belle rencontre.", name),
		PhotoURL:           fmt.Sprintf("https://cdn.shida.cd/demo/%s.jpg", name),
		Religion:           demoReligions[r.Intn(len(demoReligions))],
		Profession:         demoProfessions[r.Intn(len(demoProfessions))],
		Objective:          domain.Objectives[r.Intn(len(domain.Objectives))],
		Location:           demoCities[r.Intn(len(demoCities))],
		Interests:          domain.NewInterestSet(interests...),
		VerificationStatus: domain.VerificationPending,
	}
}

func demoPlans() []PricingPlan {
	return []PricingPlan{
		{Name: "Pack 10 tokens", PlanType: PlanTokens, Price: 4.99, Currency: "USD", TokensIncluded: 10, IsActive: true},
		{Name: "Pack 50 tokens", PlanType: PlanTokens, Price: 19.99, Currency: "USD", TokensIncluded: 50, IsActive: true},
		{Name: "Gold", PlanType: PlanSubscription, Price: 9.99, Currency: "USD", DurationDays: 30, TokensIncluded: 20, IsActive: true},
		{Name: "Platinum", PlanType: PlanSubscription, Price: 19.99, Currency: "USD", DurationDays: 30, TokensIncluded: 50, IsActive: true},
	}
}

func demoPromos(now time.Time) []PromoCode {
	until := now.AddDate(0, 3, 0)
	return []PromoCode{
		{Code: "WELCOME10", DiscountType: PromoTokens, DiscountValue: 10, IsActive: true},
		{Code: "TRIAL7", DiscountType: PromoTrial, DiscountValue: 7, MaxUses: 500, ValidFrom: &now, ValidUntil: &until, IsActive: true},
		{Code: "SAVE20", DiscountType: PromoPercent, DiscountValue: 20, MaxUses: 100, IsActive: true},
	}
}
