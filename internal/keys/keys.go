// Package keys composes the derived lookup keys stored alongside records.
package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Unit identifies a scouting unit by type, number and location.
type Unit struct {
	Type   string
	Number int
	City   string
	State  string
}

// IsZero reports whether no unit fields are set.
func (u Unit) IsZero() bool {
	return u.Type == "" && u.Number == 0 && u.City == "" && u.State == ""
}

// UnitCampaign computes the unitCampaignKey of a campaign: the unit plus the
// campaign name and year. Campaigns of the same unit season share a key so
// leaders can discover them. Returns "" when the unit is incomplete.
func UnitCampaign(u Unit, campaignName string, year int) string {
	if u.Type == "" || u.Number <= 0 || u.City == "" || u.State == "" || campaignName == "" {
		return ""
	}
	return fmt.Sprintf("%s#%d#%s#%s#%s#%d",
		normalize(u.Type), u.Number, normalize(u.City), strings.ToUpper(strings.TrimSpace(u.State)),
		normalize(campaignName), year)
}

// normalize folds case and inner whitespace so "Pack " and "pack" match.
func normalize(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// SharedCampaignCode derives a short, stable code for a shared campaign from
// its creator and a unique seed. The result is upper-case hex so it can be
// typed from a flyer.
func SharedCampaignCode(creatorID, seed string) string {
	h := sha256.Sum256([]byte(creatorID + "#" + seed))
	return strings.ToUpper(hex.EncodeToString(h[:6]))
}
