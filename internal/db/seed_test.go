package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/logger"
	"github.com/shida/shida-core/internal/testutil"
)

func TestSeedDemoData(t *testing.T) {
	database := testutil.NewDB(t)
	stale := testutil.SeedUser(t, database, "stale@test.com")

	profiles, err := db.SeedDemoData(database, 10, logger.Discard())
	require.NoError(t, err)
	require.Len(t, profiles, 20)

	var users []db.User
	require.NoError(t, database.Order("id").Find(&users).Error)
	require.Len(t, users, 20)
	assert.NotEqual(t, stale.Email, users[0].Email)
	assert.Equal(t, uint64(1), users[0].ID, "sequence reset")
	assert.Equal(t, int64(10), users[0].Tokens)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].PasswordHash), []byte(db.DemoPassword)))

	vip := 0
	for _, u := range users {
		if u.IsVIP {
			vip++
		}
	}
	assert.Equal(t, 5, vip)

	for _, p := range profiles {
		d := p.Domain()
		assert.True(t, d.IsApproved)
		assert.True(t, d.Objective.Valid(), d.Objective)
		assert.Len(t, d.Interests.Slice(), 3)
		assert.GreaterOrEqual(t, d.Age, 21)
	}

	var cfg db.MatchingConfig
	require.NoError(t, database.Where("is_active = ?", true).Take(&cfg).Error)
	assert.InDelta(t, 1.0, cfg.Weights().Sum(), 1e-9)

	var plans, promos int64
	require.NoError(t, database.Model(&db.PricingPlan{}).Count(&plans).Error)
	require.NoError(t, database.Model(&db.PromoCode{}).Count(&promos).Error)
	assert.Equal(t, int64(4), plans)
	assert.Equal(t, int64(3), promos)

	again, err := db.SeedDemoData(database, 0, logger.Discard())
	require.NoError(t, err)
	assert.Len(t, again, 20, "reseeding replaces the data")
}
