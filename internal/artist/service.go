package artist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tonearm/internal/normalize"
)

// artistColumns is the ordered list of columns for SELECT queries.
const artistColumns = `id, name, sort_name, normalized_name, profile,
	musicbrainz_id, discogs_id, itunes_id, spotify_id,
	thumbnail_url, image_urls, tags, urls,
	birth_date, status, created_at, updated_at`

// Service provides artist data operations.
type Service struct {
	db *sql.DB
}

// NewService creates an artist service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create inserts a new artist along with its alternate name rows in a
// single transaction.
func (s *Service) Create(ctx context.Context, a *Artist) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.NormalizedName == "" {
		a.NormalizedName = normalize.Name(a.Name)
	}
	if a.Status == "" {
		a.Status = "active"
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO artists (
			id, name, sort_name, normalized_name, profile,
			musicbrainz_id, discogs_id, itunes_id, spotify_id,
			thumbnail_url, image_urls, tags, urls,
			birth_date, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.Name, a.SortName, a.NormalizedName, a.Profile,
		a.MusicBrainzID, a.DiscogsID, a.ITunesID, a.SpotifyID,
		a.ThumbnailURL, MarshalStringSlice(a.ImageURLs),
		MarshalStringSlice(a.Tags), MarshalStringSlice(a.URLs),
		a.BirthDate, a.Status,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating artist: %w", err)
	}

	if err := insertAlternates(ctx, tx, a.ID, a.NormalizedName, a.AlternateNames); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing artist create: %w", err)
	}
	return nil
}

// GetByID retrieves an artist by primary key, including alternate names.
func (s *Service) GetByID(ctx context.Context, id string) (*Artist, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+artistColumns+` FROM artists WHERE id = ?`, id)
	a, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artist not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting artist by id: %w", err)
	}
	if err := s.loadAlternates(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// FindByNormalizedName retrieves an artist whose normalized name or one of
// whose alternate names matches. Returns nil without error when no artist
// matches.
func (s *Service) FindByNormalizedName(ctx context.Context, normalized string) (*Artist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+artistColumns+` FROM artists WHERE normalized_name = ?`, normalized)
	a, err := scanArtist(row)
	if err == nil {
		if err := s.loadAlternates(ctx, a); err != nil {
			return nil, err
		}
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting artist by normalized name: %w", err)
	}

	row = s.db.QueryRowContext(ctx, `
		SELECT `+artistColumns+` FROM artists
		WHERE id = (SELECT artist_id FROM artist_alternate_names WHERE normalized_name = ? LIMIT 1)
	`, normalized)
	a, err = scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting artist by alternate name: %w", err)
	}
	if err := s.loadAlternates(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// GetByMBID retrieves an artist by MusicBrainz ID. Returns nil without
// error when no artist matches.
func (s *Service) GetByMBID(ctx context.Context, mbid string) (*Artist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+artistColumns+` FROM artists WHERE musicbrainz_id = ?`, mbid)
	a, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting artist by mbid: %w", err)
	}
	if err := s.loadAlternates(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Update modifies an existing artist and replaces its alternate names. The
// normalized name is always recomputed so a renamed artist keeps its key in
// sync with the current primary name.
func (s *Service) Update(ctx context.Context, a *Artist) error {
	a.NormalizedName = normalize.Name(a.Name)
	a.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		UPDATE artists SET
			name = ?, sort_name = ?, normalized_name = ?, profile = ?,
			musicbrainz_id = ?, discogs_id = ?, itunes_id = ?, spotify_id = ?,
			thumbnail_url = ?, image_urls = ?, tags = ?, urls = ?,
			birth_date = ?, status = ?, updated_at = ?
		WHERE id = ?
	`,
		a.Name, a.SortName, a.NormalizedName, a.Profile,
		a.MusicBrainzID, a.DiscogsID, a.ITunesID, a.SpotifyID,
		a.ThumbnailURL, MarshalStringSlice(a.ImageURLs),
		MarshalStringSlice(a.Tags), MarshalStringSlice(a.URLs),
		a.BirthDate, a.Status, a.UpdatedAt.Format(time.RFC3339),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating artist: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM artist_alternate_names WHERE artist_id = ?`, a.ID); err != nil {
		return fmt.Errorf("clearing alternate names: %w", err)
	}
	if err := insertAlternates(ctx, tx, a.ID, a.NormalizedName, a.AlternateNames); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing artist update: %w", err)
	}
	return nil
}

// Delete removes an artist by ID. Cascade deletes alternate names and
// releases.
func (s *Service) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM artists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting artist: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("artist not found: %s", id)
	}
	return nil
}

// List returns artists ordered by sort name, then name.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Artist, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artists`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting artists: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+artistColumns+` FROM artists
		ORDER BY CASE WHEN sort_name != '' THEN sort_name ELSE name END
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing artists: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var artists []Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning artist row: %w", err)
		}
		artists = append(artists, *a)
	}
	return artists, total, rows.Err()
}

// Search finds artists by name substring match.
func (s *Service) Search(ctx context.Context, query string) ([]Artist, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+artistColumns+` FROM artists WHERE name LIKE ? ORDER BY name LIMIT 20`, pattern)
	if err != nil {
		return nil, fmt.Errorf("searching artists: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var artists []Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		artists = append(artists, *a)
	}
	return artists, rows.Err()
}

// insertAlternates writes alternate name rows, skipping entries whose
// normalized form collides with the primary name or a prior entry.
func insertAlternates(ctx context.Context, tx *sql.Tx, artistID, primaryNormalized string, names []string) error {
	seen := map[string]bool{primaryNormalized: true}
	for _, name := range names {
		n := normalize.Name(name)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO artist_alternate_names (artist_id, name, normalized_name)
			VALUES (?, ?, ?)
		`, artistID, name, n); err != nil {
			return fmt.Errorf("inserting alternate name %q: %w", name, err)
		}
	}
	return nil
}

// loadAlternates populates AlternateNames from the side table.
func (s *Service) loadAlternates(ctx context.Context, a *Artist) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM artist_alternate_names WHERE artist_id = ? ORDER BY name`, a.ID)
	if err != nil {
		return fmt.Errorf("loading alternate names: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	a.AlternateNames = nil
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scanning alternate name: %w", err)
		}
		a.AlternateNames = append(a.AlternateNames, name)
	}
	return rows.Err()
}

// scanArtist scans a database row into an Artist struct.
func scanArtist(row interface{ Scan(...any) error }) (*Artist, error) {
	var a Artist
	var imageURLs, tags, urls string
	var createdAt, updatedAt string

	err := row.Scan(
		&a.ID, &a.Name, &a.SortName, &a.NormalizedName, &a.Profile,
		&a.MusicBrainzID, &a.DiscogsID, &a.ITunesID, &a.SpotifyID,
		&a.ThumbnailURL, &imageURLs, &tags, &urls,
		&a.BirthDate, &a.Status, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.ImageURLs = UnmarshalStringSlice(imageURLs)
	a.Tags = UnmarshalStringSlice(tags)
	a.URLs = UnmarshalStringSlice(urls)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}
