package account

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when the account or membership does not exist.
var ErrNotFound = errors.New("account not found")

// Tier is the normalized pricing classification of an account.
type Tier int

const (
	Personal Tier = iota
	Organizational
	Government
)

// String returns the persisted name of the tier.
func (t Tier) String() string {
	switch t {
	case Organizational:
		return "ORGANIZATIONAL"
	case Government:
		return "GOVERNMENT"
	default:
		return "PERSONAL"
	}
}

// ParseTier parses a persisted tier name. Unknown names map to Personal.
func ParseTier(s string) Tier {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ORGANIZATIONAL":
		return Organizational
	case "GOVERNMENT":
		return Government
	default:
		return Personal
	}
}

// TaxExempt reports whether orders placed under the tier carry no tax.
func (t Tier) TaxExempt() bool {
	return t == Organizational || t == Government
}

// Account holds the raw identity facts supplied by the session layer.
type Account struct {
	ID                 string
	Type               string
	GovernmentApproval string
}

// Member roles with approval authority.
const (
	RoleAccountAdmin = "ACCOUNT_ADMIN"
	RoleApprover     = "APPROVER"
)

// Approver is a member of an organizational profile who may sign off orders.
type Approver struct {
	MemberID string
	Role     string
	Active   bool
}

// Membership links an account to an organizational profile.
type Membership struct {
	ID                string
	AccountID         string
	ProfileID         string
	Role              string
	RequiresApproval  bool
	ApprovalThreshold *decimal.Decimal
	CostCenterID      *string
	// Approvers lists the profile's members in profile order.
	Approvers []Approver
}

// Repository reads account facts owned by the identity layer.
type Repository interface {
	Get(ctx context.Context, id string) (*Account, error)
	// FindMembership returns ErrNotFound when the account has no membership.
	FindMembership(ctx context.Context, accountID string) (*Membership, error)
}
