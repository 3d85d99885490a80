package tokens

// Action keys with a token price.
const (
	ActionGreetMatch   = "greet_match"
	ActionSuperLike    = "super_like"
	ActionBoostProfile = "boost_profile"
	ActionSeeLikes     = "see_likes"
	ActionUndoSwipe    = "undo_swipe"
)

// DefaultCost applies to action keys missing from Costs.
const DefaultCost int64 = 1

// Costs is the price list per action.
var Costs = map[string]int64{
	ActionGreetMatch:   1,
	ActionSuperLike:    3,
	ActionBoostProfile: 5,
	ActionSeeLikes:     2,
	ActionUndoSwipe:    1,
}

func Cost(action string) int64 {
	if c, ok := Costs[action]; ok {
		return c
	}
	return DefaultCost
}

// VIP tiers.
const (
	TierFree     = "free"
	TierGold     = "Gold"
	TierPlatinum = "Platinum"
)

const baseTokens int64 = 5

var tierBonus = map[string]int64{
	TierFree:     0,
	TierGold:     30,
	TierPlatinum: 100,
}

// InitialTokens is the starting balance for a tier. Unknown tiers get the
// base amount.
func InitialTokens(tier string) int64 {
	return baseTokens + tierBonus[tier]
}

// LowBalanceThreshold triggers the low-tokens notification after a spend.
const LowBalanceThreshold int64 = 3
