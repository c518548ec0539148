package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/careloop/referral-backend/internal/apperr"
	"github.com/careloop/referral-backend/internal/repos"
	"github.com/careloop/referral-backend/internal/testutil"
	"github.com/careloop/referral-backend/internal/types"
)

func newCatalogFixture(t *testing.T) CatalogService {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return NewCatalogService(db, log, repos.NewResourceRepo(db, log), types.DefaultCategorizer())
}

func strPtr(s string) *string { return &s }

func TestCatalogCreateValidation(t *testing.T) {
	catalog := newCatalogFixture(t)
	ctx := context.Background()

	if _, err := catalog.Create(ctx, nil, &types.ResourceRecord{}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("missing organization should fail validation, got %v", err)
	}
	if _, err := catalog.Create(ctx, nil, &types.ResourceRecord{Organization: "X", Category: "medical"}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("unknown category should fail validation, got %v", err)
	}
	if _, err := catalog.Create(ctx, nil, &types.ResourceRecord{Organization: "X", Category: types.CategoryAll}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("wildcard category should fail validation, got %v", err)
	}

	created, err := catalog.Create(ctx, nil, &types.ResourceRecord{Organization: "Harbor House"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Category != types.CategoryHousing {
		t.Fatalf("default category should be housing, got %s", created.Category)
	}
	if created.ID == uuid.Nil {
		t.Fatal("Create should assign an id")
	}
}

func TestCatalogSearch(t *testing.T) {
	catalog := newCatalogFixture(t)
	ctx := context.Background()

	seed := []*types.ResourceRecord{
		{Organization: "Harbor House", ProgramType: "Emergency Shelter"},
		{Organization: "City Pantry", Services: "food boxes"},
		{Organization: "Metro Rides", ProgramType: "transportation vouchers"},
		{Organization: "Legal Aid", Category: types.CategoryOther},
	}
	for _, rec := range seed {
		if _, err := catalog.Create(ctx, nil, rec); err != nil {
			t.Fatalf("seed %s: %v", rec.Organization, err)
		}
	}

	all, err := catalog.Search(ctx, nil, "", types.CategoryAll)
	if err != nil || len(all) != 4 {
		t.Fatalf("wildcard search: len=%d err=%v", len(all), err)
	}

	// Derived categories, not stored ones: "other" shows up under housing.
	housing, err := catalog.Search(ctx, nil, "", types.CategoryHousing)
	if err != nil || len(housing) != 2 {
		t.Fatalf("housing search: len=%d err=%v", len(housing), err)
	}

	food, err := catalog.Search(ctx, nil, "", types.CategoryFood)
	if err != nil || len(food) != 1 || food[0].Organization != "City Pantry" {
		t.Fatalf("food search: %v err=%v", food, err)
	}

	byText, err := catalog.Search(ctx, nil, "HARBOR", types.CategoryAll)
	if err != nil || len(byText) != 1 || byText[0].Organization != "Harbor House" {
		t.Fatalf("text search should be case-insensitive: %v err=%v", byText, err)
	}

	none, err := catalog.Search(ctx, nil, "harbor", types.CategoryFood)
	if err != nil || len(none) != 0 {
		t.Fatalf("text+category search: len=%d err=%v", len(none), err)
	}

	if _, err := catalog.Search(ctx, nil, "", "medical"); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("invalid category should fail validation, got %v", err)
	}
}

func TestCatalogUpdate(t *testing.T) {
	catalog := newCatalogFixture(t)
	ctx := context.Background()

	created, err := catalog.Create(ctx, nil, &types.ResourceRecord{
		Organization: "Harbor House",
		ProgramType:  "Emergency Shelter",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := catalog.Update(ctx, nil, created.ID, ResourcePatch{
		ProgramType: OptionalString{Set: true, Value: strPtr("Transitional Housing")},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ProgramType != "Transitional Housing" {
		t.Fatalf("program type %q", updated.ProgramType)
	}
	if updated.Organization != "Harbor House" {
		t.Fatal("untouched fields must survive a partial update")
	}

	// Explicit null clears the field.
	updated, err = catalog.Update(ctx, nil, created.ID, ResourcePatch{
		ProgramType: OptionalString{Set: true, Value: nil},
	})
	if err != nil {
		t.Fatalf("Update null: %v", err)
	}
	if updated.ProgramType != "" {
		t.Fatalf("null patch should clear the field, got %q", updated.ProgramType)
	}

	if _, err := catalog.Update(ctx, nil, created.ID, ResourcePatch{
		ID: OptionalString{Set: true, Value: strPtr(uuid.NewString())},
	}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("id patch should be rejected, got %v", err)
	}

	if _, err := catalog.Update(ctx, nil, created.ID, ResourcePatch{
		Category: OptionalString{Set: true, Value: strPtr("medical")},
	}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("invalid category patch should be rejected, got %v", err)
	}

	if _, err := catalog.Update(ctx, nil, uuid.New(), ResourcePatch{}); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("unknown id should be not_found, got %v", err)
	}
}

func TestCatalogUpdateMergesAttributes(t *testing.T) {
	catalog := newCatalogFixture(t)
	ctx := context.Background()

	attrs, err := EncodeAttributes(map[string]string{"hours": "9-5", "languages": "en"})
	if err != nil {
		t.Fatalf("EncodeAttributes: %v", err)
	}
	created, err := catalog.Create(ctx, nil, &types.ResourceRecord{
		Organization: "City Pantry",
		Attributes:   attrs,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	patch := json.RawMessage(`{"languages":"en,es","walk_ins":"yes"}`)
	updated, err := catalog.Update(ctx, nil, created.ID, ResourcePatch{
		Attributes: OptionalJSON{Set: true, Value: &patch},
	})
	if err != nil {
		t.Fatalf("Update attributes: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(updated.Attributes, &got); err != nil {
		t.Fatalf("decode attributes: %v", err)
	}
	want := map[string]string{"hours": "9-5", "languages": "en,es", "walk_ins": "yes"}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("attribute %s: got %q want %q", k, got[k], v)
		}
	}
}
