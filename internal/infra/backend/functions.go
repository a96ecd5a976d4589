package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"replyify-site/internal/domain/billing"
	"replyify-site/internal/domain/plans"
)

// Backend function names.
const (
	UpsertPaymentByEmailPath = "users:upsertPaymentByEmail"
	GetPayingStatusPath      = "users:getPayingStatus"
	SyncUserPath             = "users:syncUserFromWorkOS"
)

// UpsertPaymentByEmail creates or updates the subscription keyed by email.
// email must already be normalized.
func (c *Client) UpsertPaymentByEmail(ctx context.Context, email string, plan plans.Plan) (billing.PaymentRecord, error) {
	value, err := c.Mutation(ctx, UpsertPaymentByEmailPath, map[string]string{
		"email": email,
		"plan":  string(plan),
	})
	if err != nil {
		return nil, err
	}
	return billing.PaymentRecord(value), nil
}

// GetPayingStatus reads the subscription for an identity-provider user ID.
func (c *Client) GetPayingStatus(ctx context.Context, externalUserID string) (billing.SubscriptionStatus, error) {
	value, err := c.Query(ctx, GetPayingStatusPath, map[string]string{
		"externalUserId": externalUserID,
	})
	if err != nil {
		return billing.SubscriptionStatus{}, err
	}
	if err := checkShape(payingStatusSchema, GetPayingStatusPath, value); err != nil {
		return billing.SubscriptionStatus{}, err
	}

	var status billing.SubscriptionStatus
	if err := json.Unmarshal(value, &status); err != nil {
		return billing.SubscriptionStatus{}, fmt.Errorf("decode %s value: %w", GetPayingStatusPath, err)
	}
	return status, nil
}

// SyncUser records the signed-in identity on the backend.
func (c *Client) SyncUser(ctx context.Context, externalUserID, email string) (billing.SyncedUser, error) {
	value, err := c.Mutation(ctx, SyncUserPath, map[string]string{
		"externalUserId": externalUserID,
		"email":          email,
	})
	if err != nil {
		return billing.SyncedUser{}, err
	}
	if err := checkShape(syncedUserSchema, SyncUserPath, value); err != nil {
		return billing.SyncedUser{}, err
	}

	var synced billing.SyncedUser
	if err := json.Unmarshal(value, &synced); err != nil {
		return billing.SyncedUser{}, fmt.Errorf("decode %s value: %w", SyncUserPath, err)
	}
	return synced, nil
}
