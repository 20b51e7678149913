package release

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tonearm/internal/normalize"
)

// releaseColumns is the ordered list of columns for SELECT queries.
const releaseColumns = `id, artist_id, title, normalized_title, profile,
	musicbrainz_id, discogs_id, itunes_id, spotify_id,
	thumbnail_url, image_urls, tags, urls,
	release_date, release_type, track_count, status, created_at, updated_at`

// Service provides release data operations.
type Service struct {
	db *sql.DB
}

// NewService creates a release service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create inserts a new release along with its alternate name rows in a
// single transaction.
func (s *Service) Create(ctx context.Context, r *Release) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.NormalizedTitle == "" {
		r.NormalizedTitle = normalize.Name(r.Title)
	}
	if r.Status == "" {
		r.Status = "active"
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO releases (
			id, artist_id, title, normalized_title, profile,
			musicbrainz_id, discogs_id, itunes_id, spotify_id,
			thumbnail_url, image_urls, tags, urls,
			release_date, release_type, track_count, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.ArtistID, r.Title, r.NormalizedTitle, r.Profile,
		r.MusicBrainzID, r.DiscogsID, r.ITunesID, r.SpotifyID,
		r.ThumbnailURL, MarshalStringSlice(r.ImageURLs),
		MarshalStringSlice(r.Tags), MarshalStringSlice(r.URLs),
		r.ReleaseDate, r.ReleaseType, r.TrackCount, r.Status,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating release: %w", err)
	}

	if err := insertAlternates(ctx, tx, r.ID, r.NormalizedTitle, r.AlternateNames); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing release create: %w", err)
	}
	return nil
}

// GetByID retrieves a release by primary key, including alternate names.
func (s *Service) GetByID(ctx context.Context, id string) (*Release, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+releaseColumns+` FROM releases WHERE id = ?`, id)
	r, err := scanRelease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("release not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting release by id: %w", err)
	}
	if err := s.loadAlternates(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// FindByNormalizedTitle retrieves a release for the given artist whose
// normalized title or alternate name matches. Returns nil without error
// when nothing matches.
func (s *Service) FindByNormalizedTitle(ctx context.Context, artistID, normalized string) (*Release, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+releaseColumns+` FROM releases WHERE artist_id = ? AND normalized_title = ?`,
		artistID, normalized)
	r, err := scanRelease(row)
	if err == nil {
		if err := s.loadAlternates(ctx, r); err != nil {
			return nil, err
		}
		return r, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting release by normalized title: %w", err)
	}

	row = s.db.QueryRowContext(ctx, `
		SELECT `+releaseColumns+` FROM releases
		WHERE artist_id = ? AND id IN (
			SELECT release_id FROM release_alternate_names WHERE normalized_name = ?
		) LIMIT 1
	`, artistID, normalized)
	r, err = scanRelease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting release by alternate name: %w", err)
	}
	if err := s.loadAlternates(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Update modifies an existing release and replaces its alternate names. The
// normalized title is always recomputed so a retitled release keeps its key
// in sync with the current title.
func (s *Service) Update(ctx context.Context, r *Release) error {
	r.NormalizedTitle = normalize.Name(r.Title)
	r.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		UPDATE releases SET
			title = ?, normalized_title = ?, profile = ?,
			musicbrainz_id = ?, discogs_id = ?, itunes_id = ?, spotify_id = ?,
			thumbnail_url = ?, image_urls = ?, tags = ?, urls = ?,
			release_date = ?, release_type = ?, track_count = ?, status = ?, updated_at = ?
		WHERE id = ?
	`,
		r.Title, r.NormalizedTitle, r.Profile,
		r.MusicBrainzID, r.DiscogsID, r.ITunesID, r.SpotifyID,
		r.ThumbnailURL, MarshalStringSlice(r.ImageURLs),
		MarshalStringSlice(r.Tags), MarshalStringSlice(r.URLs),
		r.ReleaseDate, r.ReleaseType, r.TrackCount, r.Status,
		r.UpdatedAt.Format(time.RFC3339),
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("updating release: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM release_alternate_names WHERE release_id = ?`, r.ID); err != nil {
		return fmt.Errorf("clearing alternate names: %w", err)
	}
	if err := insertAlternates(ctx, tx, r.ID, r.NormalizedTitle, r.AlternateNames); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing release update: %w", err)
	}
	return nil
}

// Delete removes a release by ID.
func (s *Service) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM releases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting release: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("release not found: %s", id)
	}
	return nil
}

// ListByArtist returns all releases for an artist ordered by release date.
func (s *Service) ListByArtist(ctx context.Context, artistID string) ([]Release, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+releaseColumns+` FROM releases
		WHERE artist_id = ?
		ORDER BY release_date, title
	`, artistID)
	if err != nil {
		return nil, fmt.Errorf("listing releases: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var releases []Release
	for rows.Next() {
		r, err := scanRelease(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning release row: %w", err)
		}
		releases = append(releases, *r)
	}
	return releases, rows.Err()
}

func insertAlternates(ctx context.Context, tx *sql.Tx, releaseID, primaryNormalized string, names []string) error {
	seen := map[string]bool{primaryNormalized: true}
	for _, name := range names {
		n := normalize.Name(name)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO release_alternate_names (release_id, name, normalized_name)
			VALUES (?, ?, ?)
		`, releaseID, name, n); err != nil {
			return fmt.Errorf("inserting alternate name %q: %w", name, err)
		}
	}
	return nil
}

func (s *Service) loadAlternates(ctx context.Context, r *Release) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM release_alternate_names WHERE release_id = ? ORDER BY name`, r.ID)
	if err != nil {
		return fmt.Errorf("loading alternate names: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	r.AlternateNames = nil
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scanning alternate name: %w", err)
		}
		r.AlternateNames = append(r.AlternateNames, name)
	}
	return rows.Err()
}

// scanRelease scans a database row into a Release struct.
func scanRelease(row interface{ Scan(...any) error }) (*Release, error) {
	var r Release
	var imageURLs, tags, urls string
	var createdAt, updatedAt string

	err := row.Scan(
		&r.ID, &r.ArtistID, &r.Title, &r.NormalizedTitle, &r.Profile,
		&r.MusicBrainzID, &r.DiscogsID, &r.ITunesID, &r.SpotifyID,
		&r.ThumbnailURL, &imageURLs, &tags, &urls,
		&r.ReleaseDate, &r.ReleaseType, &r.TrackCount, &r.Status,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.ImageURLs = UnmarshalStringSlice(imageURLs)
	r.Tags = UnmarshalStringSlice(tags)
	r.URLs = UnmarshalStringSlice(urls)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}
