package account

import "strings"

// approvedStatus is the only government approval status that unlocks
// government pricing.
const approvedStatus = "APPROVED"

var rawTypes = map[string]Tier{
	"PERSONAL":     Personal,
	"B2C":          Personal,
	"RETAIL":       Personal,
	"VOLUME_BUYER": Organizational,
	"B2B":          Organizational,
	"GOVERNMENT":   Government,
	"GSA":          Government,
}

// Classify maps raw account facts onto a pricing tier.
//
// A government account is only classified as Government once its approval
// status is APPROVED; until then it is priced as Personal. Organizational
// accounts are classified regardless of membership approval settings, which
// only affect the approval gate.
func Classify(a Account) Tier {
	tier, ok := rawTypes[strings.ToUpper(strings.TrimSpace(a.Type))]
	if !ok {
		return Personal
	}
	if tier == Government && !strings.EqualFold(strings.TrimSpace(a.GovernmentApproval), approvedStatus) {
		return Personal
	}
	return tier
}
