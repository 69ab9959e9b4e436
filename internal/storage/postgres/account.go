package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/tiered-checkout/internal/domain/account"
)

const (
	getAccountSQL = `SELECT id, account_type, gsa_approval_status FROM accounts WHERE id = $1`

	getMembershipSQL = `SELECT m.id, m.account_id, m.profile_id, m.role, m.cost_center_id,
		p.requires_approval, p.approval_threshold
		FROM business_members m
		JOIN business_profiles p ON p.id = m.profile_id
		WHERE m.account_id = $1 AND m.active`

	listApproversSQL = `SELECT id, role, active FROM business_members
		WHERE profile_id = $1 AND role IN ('ACCOUNT_ADMIN', 'APPROVER')
		ORDER BY created_at, id`
)

var _ account.Repository = (*AccountRepository)(nil)

// AccountRepository reads the identity layer's account facts.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns an AccountRepository that uses the given pool.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Get returns account.ErrNotFound when no account has the id.
func (r *AccountRepository) Get(ctx context.Context, id string) (*account.Account, error) {
	var a account.Account
	err := r.pool.QueryRow(ctx, getAccountSQL, id).Scan(&a.ID, &a.Type, &a.GovernmentApproval)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("getting account %q: %w", id, err)
	}
	return &a, nil
}

// FindMembership returns the account's active membership with the profile's
// approvers, or account.ErrNotFound.
func (r *AccountRepository) FindMembership(ctx context.Context, accountID string) (*account.Membership, error) {
	return findMembership(ctx, r.pool, accountID)
}

func findMembership(ctx context.Context, q querier, accountID string) (*account.Membership, error) {
	var m account.Membership
	err := q.QueryRow(ctx, getMembershipSQL, accountID).Scan(
		&m.ID, &m.AccountID, &m.ProfileID, &m.Role, &m.CostCenterID,
		&m.RequiresApproval, &m.ApprovalThreshold,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("finding membership for %q: %w", accountID, err)
	}

	rows, err := q.Query(ctx, listApproversSQL, m.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("listing approvers for profile %q: %w", m.ProfileID, err)
	}
	m.Approvers, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (account.Approver, error) {
		var a account.Approver
		err := row.Scan(&a.MemberID, &a.Role, &a.Active)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning approvers for profile %q: %w", m.ProfileID, err)
	}

	return &m, nil
}
