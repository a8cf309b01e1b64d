package ledger

import "strings"

const (
	TierTrialer      = "trialer"
	TierStarter      = "starter"
	TierPlus         = "plus"
	TierProfessional = "professional"
	TierPro          = "pro"
	TierTeam         = "team"
)

// Tier is a purchasable credit pack.
type Tier struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Credits int64  `json:"credits"`
	// OneTime tiers can be bought once per user.
	OneTime bool `json:"oneTime"`
}

// Description is the ledger description written for purchases of t.
func (t Tier) Description() string {
	return "Credits from " + t.Name
}

// Reference is the ledger reference for a one-time tier bought by userID.
func (t Tier) Reference(userID string) string {
	return t.ID + "_" + userID
}

var tiers = []Tier{
	{ID: TierTrialer, Name: "Trialer", Credits: 2, OneTime: true},
	{ID: TierStarter, Name: "Starter", Credits: 5},
	{ID: TierPlus, Name: "Plus", Credits: 10},
	{ID: TierProfessional, Name: "Professional", Credits: 15},
	{ID: TierPro, Name: "Pro", Credits: 20},
	{ID: TierTeam, Name: "Team", Credits: 60},
}

func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

func LookupTier(id string) (Tier, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, t := range tiers {
		if t.ID == id {
			return t, true
		}
	}
	return Tier{}, false
}
