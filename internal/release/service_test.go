package release

import (
	"context"
	"database/sql"
	"testing"

	"tonearm/internal/artist"
	"tonearm/internal/database"
	"tonearm/internal/normalize"
)

func setupTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	a := &artist.Artist{Name: "Radiohead"}
	if err := artist.NewService(db).Create(context.Background(), a); err != nil {
		t.Fatalf("creating parent artist: %v", err)
	}
	return db, a.ID
}

func testRelease(artistID, title string) *Release {
	return &Release{
		ArtistID:    artistID,
		Title:       title,
		ReleaseDate: "1997-06-16",
		ReleaseType: "album",
		TrackCount:  12,
		Tags:        []string{"alternative rock"},
	}
}

func TestCreateAndGetByID(t *testing.T) {
	db, artistID := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	r := testRelease(artistID, "OK Computer")
	r.AlternateNames = []string{"OKC"}
	if err := svc.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.NormalizedTitle != "ok computer" {
		t.Errorf("expected normalized title, got %q", r.NormalizedTitle)
	}

	got, err := svc.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "OK Computer" || got.TrackCount != 12 {
		t.Errorf("unexpected release: %+v", got)
	}
	if len(got.AlternateNames) != 1 || got.AlternateNames[0] != "OKC" {
		t.Errorf("unexpected alternates: %v", got.AlternateNames)
	}
}

func TestFindByNormalizedTitle(t *testing.T) {
	db, artistID := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	r := testRelease(artistID, "OK Computer")
	r.AlternateNames = []string{"OKNOTOK"}
	if err := svc.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.FindByNormalizedTitle(ctx, artistID, normalize.Name("ok computer"))
	if err != nil {
		t.Fatalf("FindByNormalizedTitle: %v", err)
	}
	if got == nil || got.ID != r.ID {
		t.Fatalf("expected match, got %+v", got)
	}

	got, err = svc.FindByNormalizedTitle(ctx, artistID, normalize.Name("OKNOTOK"))
	if err != nil {
		t.Fatalf("FindByNormalizedTitle alternate: %v", err)
	}
	if got == nil || got.ID != r.ID {
		t.Fatalf("expected alternate match, got %+v", got)
	}

	// Same title under a different artist does not match.
	got, err = svc.FindByNormalizedTitle(ctx, "other-artist", normalize.Name("ok computer"))
	if err != nil {
		t.Fatalf("FindByNormalizedTitle other artist: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for other artist, got %+v", got)
	}
}

func TestUpdateRecomputesNormalizedTitle(t *testing.T) {
	db, artistID := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	r := testRelease(artistID, "OK Computer")
	if err := svc.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}

	r.Title = "OK Computer OKNOTOK 1997 2017"
	r.AlternateNames = []string{"OK Computer"}
	if err := svc.Update(ctx, r); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := svc.FindByNormalizedTitle(ctx, artistID, normalize.Name("OK Computer OKNOTOK 1997 2017"))
	if err != nil {
		t.Fatalf("FindByNormalizedTitle: %v", err)
	}
	if got == nil || got.ID != r.ID {
		t.Fatalf("retitled release not found under new normalized title: %+v", got)
	}
	// The old title still resolves through the alternate table.
	old, err := svc.FindByNormalizedTitle(ctx, artistID, normalize.Name("OK Computer"))
	if err != nil {
		t.Fatalf("FindByNormalizedTitle: %v", err)
	}
	if old == nil || old.ID != r.ID {
		t.Fatalf("prior title must resolve to the same record, got %+v", old)
	}
}

func TestDuplicateTitlePerArtist(t *testing.T) {
	db, artistID := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	if err := svc.Create(ctx, testRelease(artistID, "OK Computer")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := svc.Create(ctx, testRelease(artistID, "ok computer"))
	if err == nil {
		t.Fatal("expected unique violation for same normalized title")
	}
	if !database.IsUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}
}

func TestListByArtist(t *testing.T) {
	db, artistID := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	kid := testRelease(artistID, "Kid A")
	kid.ReleaseDate = "2000-10-02"
	for _, r := range []*Release{testRelease(artistID, "OK Computer"), kid} {
		if err := svc.Create(ctx, r); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	releases, err := svc.ListByArtist(ctx, artistID)
	if err != nil {
		t.Fatalf("ListByArtist: %v", err)
	}
	if len(releases) != 2 {
		t.Fatalf("expected 2 releases, got %d", len(releases))
	}
	if releases[0].Title != "OK Computer" {
		t.Errorf("expected date ordering, got %s first", releases[0].Title)
	}
}

func TestDeleteCascadesWithArtist(t *testing.T) {
	db, artistID := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	r := testRelease(artistID, "OK Computer")
	if err := svc.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := artist.NewService(db).Delete(ctx, artistID); err != nil {
		t.Fatalf("deleting artist: %v", err)
	}

	releases, err := svc.ListByArtist(ctx, artistID)
	if err != nil {
		t.Fatalf("ListByArtist: %v", err)
	}
	if len(releases) != 0 {
		t.Errorf("expected cascade delete, got %d releases", len(releases))
	}
}
