package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/careloop/referral-backend/internal/apperr"
	"github.com/careloop/referral-backend/internal/repos"
	"github.com/careloop/referral-backend/internal/testutil"
	"github.com/careloop/referral-backend/internal/types"
)

func newReferralFixture(t *testing.T) (ReferralService, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	resourceRepo := repos.NewResourceRepo(db, log)
	clientRepo := repos.NewClientRepo(db, log)
	referralRepo := repos.NewReferralRepo(db, log)
	catalog := NewCatalogService(db, log, resourceRepo, types.DefaultCategorizer())

	svc := NewReferralService(db, log, referralRepo, resourceRepo, clientRepo, catalog, nil, nil)
	return svc, db
}

func TestCommitCreatesPendingEntry(t *testing.T) {
	svc, db := newReferralFixture(t)
	ctx := context.Background()
	client := testutil.SeedClient(t, ctx, db, "Maria", "Lopez")
	resource := testutil.SeedResource(t, ctx, db, "Harbor House", types.CategoryHousing)

	entry, err := svc.Commit(ctx, CommitInput{
		ClientID:   client.ID,
		ResourceID: resource.ID,
		Provenance: types.ProvenanceBrowse,
		Rationale:  "should be ignored for browse",
		Notes:      "walk-in ok",
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if entry.Status != types.StatusPending {
		t.Fatalf("new referral status %s, want pending", entry.Status)
	}
	if entry.AIReasoning != nil {
		t.Fatal("browse referrals must not carry AI reasoning")
	}
	if entry.Notes != "walk-in ok" {
		t.Fatalf("notes %q", entry.Notes)
	}
	if entry.AddedDate.IsZero() || !entry.LastUpdated.Equal(entry.AddedDate) {
		t.Fatal("timestamps should be set and equal at creation")
	}
}

func TestCommitMatchProvenanceCarriesReasoning(t *testing.T) {
	svc, db := newReferralFixture(t)
	ctx := context.Background()
	client := testutil.SeedClient(t, ctx, db, "Maria", "Lopez")
	resource := testutil.SeedResource(t, ctx, db, "City Pantry", types.CategoryFood)

	entry, err := svc.Commit(ctx, CommitInput{
		ClientID:   client.ID,
		ResourceID: resource.ID,
		Provenance: types.ProvenanceMatch,
		Rationale:  "closest pantry with evening hours",
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if entry.AIReasoning == nil || *entry.AIReasoning != "closest pantry with evening hours" {
		t.Fatalf("AI reasoning not recorded: %v", entry.AIReasoning)
	}
}

func TestCommitValidation(t *testing.T) {
	svc, db := newReferralFixture(t)
	ctx := context.Background()
	client := testutil.SeedClient(t, ctx, db, "Maria", "Lopez")
	resource := testutil.SeedResource(t, ctx, db, "Harbor House", types.CategoryHousing)

	if _, err := svc.Commit(ctx, CommitInput{
		ClientID: client.ID, ResourceID: resource.ID, Provenance: "imported",
	}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("bad provenance: %v", err)
	}
	if _, err := svc.Commit(ctx, CommitInput{
		ClientID: client.ID, ResourceID: uuid.New(), Provenance: types.ProvenanceBrowse,
	}); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("unknown resource: %v", err)
	}
	if _, err := svc.Commit(ctx, CommitInput{
		ClientID: uuid.New(), ResourceID: resource.ID, Provenance: types.ProvenanceBrowse,
	}); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("unknown client: %v", err)
	}
}

func TestCommitDuplicateReturnsExisting(t *testing.T) {
	svc, db := newReferralFixture(t)
	ctx := context.Background()
	client := testutil.SeedClient(t, ctx, db, "Maria", "Lopez")
	resource := testutil.SeedResource(t, ctx, db, "Harbor House", types.CategoryHousing)

	first, err := svc.Commit(ctx, CommitInput{
		ClientID: client.ID, ResourceID: resource.ID, Provenance: types.ProvenanceBrowse,
	})
	if err != nil {
		t.Fatalf("first Commit: %v", err)
	}

	existing, err := svc.Commit(ctx, CommitInput{
		ClientID: client.ID, ResourceID: resource.ID, Provenance: types.ProvenanceMatch,
		Rationale: "second attempt",
	})
	if apperr.KindOf(err) != apperr.KindDuplicateReferral {
		t.Fatalf("expected duplicate_referral, got %v", err)
	}
	if existing == nil || existing.ID != first.ID {
		t.Fatal("duplicate commit should return the original entry")
	}
	if existing.AIReasoning != nil {
		t.Fatal("duplicate commit must not overwrite the original entry")
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	svc, db := newReferralFixture(t)
	ctx := context.Background()
	client := testutil.SeedClient(t, ctx, db, "Maria", "Lopez")
	resource := testutil.SeedResource(t, ctx, db, "Harbor House", types.CategoryHousing)

	if _, err := svc.Commit(ctx, CommitInput{
		ClientID: client.ID, ResourceID: resource.ID, Provenance: types.ProvenanceBrowse,
	}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	// pending cannot jump straight to completed.
	if _, err := svc.UpdateStatus(ctx, client.ID, resource.ID, types.StatusCompleted, ""); apperr.KindOf(err) != apperr.KindInvalidTransition {
		t.Fatalf("pending->completed: %v", err)
	}

	entry, err := svc.UpdateStatus(ctx, client.ID, resource.ID, types.StatusContacted, "left voicemail")
	if err != nil {
		t.Fatalf("pending->contacted: %v", err)
	}
	if entry.Status != types.StatusContacted || entry.Notes != "left voicemail" {
		t.Fatalf("entry after update: %+v", entry)
	}

	entry, err = svc.UpdateStatus(ctx, client.ID, resource.ID, types.StatusInProgress, "intake scheduled")
	if err != nil {
		t.Fatalf("contacted->in_progress: %v", err)
	}
	if entry.Notes != "left voicemail\nintake scheduled" {
		t.Fatalf("notes should append, got %q", entry.Notes)
	}

	entry, err = svc.UpdateStatus(ctx, client.ID, resource.ID, types.StatusCompleted, "")
	if err != nil {
		t.Fatalf("in_progress->completed: %v", err)
	}
	if entry.Notes != "left voicemail\nintake scheduled" {
		t.Fatal("empty notes must not erase prior notes")
	}

	// Terminal: nothing leaves completed.
	if _, err := svc.UpdateStatus(ctx, client.ID, resource.ID, types.StatusPending, ""); apperr.KindOf(err) != apperr.KindInvalidTransition {
		t.Fatalf("completed->pending: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, client.ID, resource.ID, "archived", ""); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("unknown status: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, client.ID, uuid.New(), types.StatusContacted, ""); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("unknown pair: %v", err)
	}
}

func TestUpdateStatusPreservesImmutableFields(t *testing.T) {
	svc, db := newReferralFixture(t)
	ctx := context.Background()
	client := testutil.SeedClient(t, ctx, db, "Maria", "Lopez")
	resource := testutil.SeedResource(t, ctx, db, "City Pantry", types.CategoryFood)

	created, err := svc.Commit(ctx, CommitInput{
		ClientID: client.ID, ResourceID: resource.ID, Provenance: types.ProvenanceMatch,
		Rationale: "good fit",
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	updated, err := svc.UpdateStatus(ctx, client.ID, resource.ID, types.StatusContacted, "")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if !updated.AddedDate.Equal(created.AddedDate) {
		t.Fatal("added_date must never change")
	}
	if updated.AIReasoning == nil || *updated.AIReasoning != "good fit" {
		t.Fatal("ai_reasoning must never change")
	}
	if !updated.LastUpdated.After(created.LastUpdated) {
		t.Fatal("last_updated should advance")
	}
}

func TestListForClientReconciliation(t *testing.T) {
	svc, db := newReferralFixture(t)
	ctx := context.Background()
	client := testutil.SeedClient(t, ctx, db, "Maria", "Lopez")
	kept := testutil.SeedResource(t, ctx, db, "Harbor House", types.CategoryHousing)
	doomed := testutil.SeedResource(t, ctx, db, "Closed Org", types.CategoryHousing)

	for _, r := range []uuid.UUID{kept.ID, doomed.ID} {
		if _, err := svc.Commit(ctx, CommitInput{
			ClientID: client.ID, ResourceID: r, Provenance: types.ProvenanceBrowse,
		}); err != nil {
			t.Fatalf("Commit: %v", err)
		}
	}

	// Simulate a catalog entry deleted out from under the ledger.
	if err := db.Delete(&types.ResourceRecord{}, "id = ?", doomed.ID).Error; err != nil {
		t.Fatalf("delete resource: %v", err)
	}

	views, err := svc.ListForClient(ctx, client.ID)
	if err != nil {
		t.Fatalf("ListForClient: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("views len=%d", len(views))
	}
	if views[0].Entry.ResourceID != kept.ID {
		t.Fatal("views should preserve insertion order")
	}
	if views[0].Incomplete || views[0].Resource == nil {
		t.Fatal("resolved view should not be incomplete")
	}
	if !views[1].Incomplete || views[1].Resource != nil {
		t.Fatal("dangling view should be flagged incomplete")
	}
}

func TestRecentActivity(t *testing.T) {
	svc, db := newReferralFixture(t)
	ctx := context.Background()

	var lastClient *types.Client
	var lastResource *types.ResourceRecord
	for i := 0; i < 3; i++ {
		lastClient = testutil.SeedClient(t, ctx, db, "Client", string(rune('A'+i)))
		lastResource = testutil.SeedResource(t, ctx, db, "Org", types.CategoryHousing)
		if _, err := svc.Commit(ctx, CommitInput{
			ClientID: lastClient.ID, ResourceID: lastResource.ID, Provenance: types.ProvenanceBrowse,
		}); err != nil {
			t.Fatalf("Commit: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	activity, err := svc.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if activity.TotalCount != 3 {
		t.Fatalf("total=%d want 3", activity.TotalCount)
	}
	if len(activity.Recent) != 2 {
		t.Fatalf("recent len=%d want 2", len(activity.Recent))
	}
	top := activity.Recent[0]
	if top.ClientID != lastClient.ID || top.ResourceID != lastResource.ID {
		t.Fatal("most recently updated referral should come first")
	}
	if top.ClientName == "" || top.Organization == "" || top.Incomplete {
		t.Fatalf("top row not fully resolved: %+v", top)
	}
	if top.Category != types.CategoryHousing {
		t.Fatalf("derived category %s", top.Category)
	}
}
