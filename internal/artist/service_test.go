package artist

import (
	"context"
	"database/sql"
	"testing"

	"tonearm/internal/database"
	"tonearm/internal/normalize"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testArtist(name string) *Artist {
	return &Artist{
		Name:     name,
		SortName: name,
		Profile:  "A test artist.",
		Tags:     []string{"rock", "alternative"},
	}
}

func TestCreateAndGetByID(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	a := testArtist("Nirvana")
	a.MusicBrainzID = "5b11f4ce-a62d-471e-81fc-a69a8278c7da"
	a.AlternateNames = []string{"Nirvana US", "Pen Cap Chew"}

	if err := svc.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID == "" {
		t.Fatal("expected ID to be set after Create")
	}
	if a.NormalizedName != "nirvana" {
		t.Errorf("expected normalized name nirvana, got %q", a.NormalizedName)
	}

	got, err := svc.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Nirvana" || got.MusicBrainzID != a.MusicBrainzID {
		t.Errorf("unexpected artist: %+v", got)
	}
	if len(got.AlternateNames) != 2 {
		t.Errorf("expected 2 alternates, got %v", got.AlternateNames)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "rock" {
		t.Errorf("unexpected tags: %v", got.Tags)
	}
}

func TestFindByNormalizedName(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	a := testArtist("Björk")
	a.AlternateNames = []string{"Björk Guðmundsdóttir"}
	if err := svc.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.FindByNormalizedName(ctx, normalize.Name("Bjork"))
	if err != nil {
		t.Fatalf("FindByNormalizedName: %v", err)
	}
	if got == nil || got.ID != a.ID {
		t.Fatalf("expected match via primary name, got %+v", got)
	}

	// Alternate names resolve to the same record.
	got, err = svc.FindByNormalizedName(ctx, normalize.Name("Björk Guðmundsdóttir"))
	if err != nil {
		t.Fatalf("FindByNormalizedName alternate: %v", err)
	}
	if got == nil || got.ID != a.ID {
		t.Fatalf("expected match via alternate name, got %+v", got)
	}

	got, err = svc.FindByNormalizedName(ctx, "does not exist")
	if err != nil {
		t.Fatalf("FindByNormalizedName miss: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for miss, got %+v", got)
	}
}

func TestCreateDuplicateNormalizedName(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	if err := svc.Create(ctx, testArtist("Radiohead")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := svc.Create(ctx, testArtist("radiohead"))
	if err == nil {
		t.Fatal("expected unique violation for same normalized name")
	}
	if !database.IsUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}
}

func TestUpdateReplacesAlternates(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	a := testArtist("Cat Stevens")
	a.AlternateNames = []string{"Steven Georgiou"}
	if err := svc.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	a.Profile = "updated"
	a.AlternateNames = []string{"Yusuf Islam", "Yusuf"}
	if err := svc.Update(ctx, a); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := svc.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Profile != "updated" {
		t.Errorf("expected updated profile, got %q", got.Profile)
	}
	if len(got.AlternateNames) != 2 {
		t.Errorf("expected alternates replaced, got %v", got.AlternateNames)
	}
	// The old alternate no longer resolves.
	old, err := svc.FindByNormalizedName(ctx, normalize.Name("Steven Georgiou"))
	if err != nil {
		t.Fatalf("FindByNormalizedName: %v", err)
	}
	if old != nil {
		t.Errorf("stale alternate still resolves: %+v", old)
	}
}

func TestUpdateRecomputesNormalizedName(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	a := testArtist("Diana Ross")
	if err := svc.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	a.Name = "Diana Ross & The Supremes"
	a.AlternateNames = []string{"Diana Ross"}
	if err := svc.Update(ctx, a); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := svc.FindByNormalizedName(ctx, normalize.Name("Diana Ross & The Supremes"))
	if err != nil {
		t.Fatalf("FindByNormalizedName: %v", err)
	}
	if got == nil || got.ID != a.ID {
		t.Fatalf("renamed artist not found under new normalized name: %+v", got)
	}
	// The old name still resolves through the alternate table.
	old, err := svc.FindByNormalizedName(ctx, normalize.Name("Diana Ross"))
	if err != nil {
		t.Fatalf("FindByNormalizedName: %v", err)
	}
	if old == nil || old.ID != a.ID {
		t.Fatalf("prior name must resolve to the same record, got %+v", old)
	}
}

func TestListAndSearch(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	for _, name := range []string{"Radiohead", "R.E.M.", "Portishead"} {
		if err := svc.Create(ctx, testArtist(name)); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	artists, total, err := svc.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(artists) != 3 {
		t.Errorf("expected 3 artists, got %d/%d", len(artists), total)
	}

	hits, err := svc.Search(ctx, "head")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("expected 2 hits for 'head', got %d", len(hits))
	}
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	a := testArtist("Slowdive")
	if err := svc.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, a.ID); err == nil {
		t.Error("expected error deleting missing artist")
	}
}
