package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/careloop/referral-backend/internal/types"
)

func SeedClient(tb testing.TB, ctx context.Context, tx *gorm.DB, firstName, lastName string) *types.Client {
	tb.Helper()
	now := time.Now().UTC()
	c := &types.Client{
		ID:        uuid.New(),
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed client: %v", err)
	}
	return c
}

func SeedResource(tb testing.TB, ctx context.Context, tx *gorm.DB, organization string, category types.Category) *types.ResourceRecord {
	tb.Helper()
	now := time.Now().UTC()
	r := &types.ResourceRecord{
		ID:           uuid.New(),
		Organization: organization,
		Category:     category,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed resource: %v", err)
	}
	return r
}

func SeedReferral(tb testing.TB, ctx context.Context, tx *gorm.DB, clientID, resourceID uuid.UUID, status types.ReferralStatus) *types.ReferralEntry {
	tb.Helper()
	now := time.Now().UTC()
	e := &types.ReferralEntry{
		ID:          uuid.New(),
		ClientID:    clientID,
		ResourceID:  resourceID,
		Status:      status,
		Provenance:  types.ProvenanceBrowse,
		AddedDate:   now,
		LastUpdated: now,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed referral: %v", err)
	}
	return e
}
