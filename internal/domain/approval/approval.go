// Package approval decides whether an organizational order is held for sign-off.
package approval

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/tiered-checkout/internal/domain/account"
)

// Status of an approval request.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Reason explains a gate decision.
type Reason string

const (
	ReasonNoMembership      Reason = "no_membership"
	ReasonNotRequired       Reason = "not_required"
	ReasonNoThreshold       Reason = "no_threshold"
	ReasonWithinThreshold   Reason = "within_threshold"
	ReasonNoApprover        Reason = "no_approver"
	ReasonThresholdExceeded Reason = "threshold_exceeded"
)

// Decision is the outcome of the approval gate.
type Decision struct {
	Hold       bool
	ApproverID string
	Reason     Reason
}

// Decide evaluates the gate for an order total.
//
// An order is held only when every condition holds: membership present,
// approval required, threshold declared, total above threshold and a
// qualified approver on the profile. A missing approver never blocks
// checkout; the order is placed unheld with ReasonNoApprover.
func Decide(m *account.Membership, total decimal.Decimal) Decision {
	switch {
	case m == nil:
		return Decision{Reason: ReasonNoMembership}
	case !m.RequiresApproval:
		return Decision{Reason: ReasonNotRequired}
	case m.ApprovalThreshold == nil:
		return Decision{Reason: ReasonNoThreshold}
	case !total.GreaterThan(*m.ApprovalThreshold):
		return Decision{Reason: ReasonWithinThreshold}
	}

	approver, ok := FirstApprover(m.Approvers)
	if !ok {
		return Decision{Reason: ReasonNoApprover}
	}
	return Decision{Hold: true, ApproverID: approver.MemberID, Reason: ReasonThresholdExceeded}
}

// FirstApprover returns the first active member with approval authority.
func FirstApprover(approvers []account.Approver) (account.Approver, bool) {
	for _, a := range approvers {
		if !a.Active {
			continue
		}
		if a.Role == account.RoleAccountAdmin || a.Role == account.RoleApprover {
			return a, true
		}
	}
	return account.Approver{}, false
}
