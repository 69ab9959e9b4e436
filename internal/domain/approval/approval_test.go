package approval

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/xenking/tiered-checkout/internal/domain/account"
)

func threshold(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestDecide(t *testing.T) {
	approvers := []account.Approver{
		{MemberID: "m-inactive", Role: account.RoleApprover, Active: false},
		{MemberID: "m-buyer", Role: "BUYER", Active: true},
		{MemberID: "m-admin", Role: account.RoleAccountAdmin, Active: true},
		{MemberID: "m-approver", Role: account.RoleApprover, Active: true},
	}

	tests := []struct {
		name       string
		membership *account.Membership
		total      int64
		wantHold   bool
		wantID     string
		wantReason Reason
	}{
		{
			name:       "no membership",
			total:      5000,
			wantReason: ReasonNoMembership,
		},
		{
			name:       "approval not required",
			membership: &account.Membership{ApprovalThreshold: threshold(100), Approvers: approvers},
			total:      5000,
			wantReason: ReasonNotRequired,
		},
		{
			name:       "no threshold",
			membership: &account.Membership{RequiresApproval: true, Approvers: approvers},
			total:      5000,
			wantReason: ReasonNoThreshold,
		},
		{
			name:       "total equal to threshold",
			membership: &account.Membership{RequiresApproval: true, ApprovalThreshold: threshold(1000), Approvers: approvers},
			total:      1000,
			wantReason: ReasonWithinThreshold,
		},
		{
			name:       "exceeds threshold picks first qualified approver",
			membership: &account.Membership{RequiresApproval: true, ApprovalThreshold: threshold(1000), Approvers: approvers},
			total:      1300,
			wantHold:   true,
			wantID:     "m-admin",
			wantReason: ReasonThresholdExceeded,
		},
		{
			name: "exceeds threshold without approver",
			membership: &account.Membership{
				RequiresApproval:  true,
				ApprovalThreshold: threshold(1000),
				Approvers:         approvers[:2],
			},
			total:      1300,
			wantReason: ReasonNoApprover,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.membership, decimal.NewFromInt(tt.total))
			assert.Equal(t, tt.wantHold, got.Hold)
			assert.Equal(t, tt.wantID, got.ApproverID)
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}
