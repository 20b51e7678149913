package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"tonearm/internal/config"
	"tonearm/internal/encryption"
)

// SettingsService resolves provider credentials, enablement, priority order,
// and the fan-out policy. The settings table overrides config file values, so
// keys entered at runtime win over keys shipped in config.
type SettingsService struct {
	db        *sql.DB
	encryptor *encryption.Encryptor
	cfg       *config.Config
}

// NewSettingsService creates a SettingsService.
func NewSettingsService(db *sql.DB, encryptor *encryption.Encryptor, cfg *config.Config) *SettingsService {
	return &SettingsService{db: db, encryptor: encryptor, cfg: cfg}
}

func apiKeySettingKey(name ProviderName) string {
	return fmt.Sprintf("provider.%s.api_key", name)
}

func apiSecretSettingKey(name ProviderName) string {
	return fmt.Sprintf("provider.%s.api_secret", name)
}

func enabledSettingKey(name ProviderName) string {
	return fmt.Sprintf("provider.%s.enabled", name)
}

func keyStatusSettingKey(name ProviderName) string {
	return fmt.Sprintf("provider.%s.key_status", name)
}

// GetAPIKey retrieves and decrypts the API key for a provider, falling back
// to the config file value. Returns empty string if no key is configured.
func (s *SettingsService) GetAPIKey(ctx context.Context, name ProviderName) (string, error) {
	return s.getCredential(ctx, name, apiKeySettingKey(name), s.cfg.Provider(string(name)).APIKey)
}

// GetAPISecret retrieves the secondary credential for providers with two-part
// keys (Spotify's client secret).
func (s *SettingsService) GetAPISecret(ctx context.Context, name ProviderName) (string, error) {
	return s.getCredential(ctx, name, apiSecretSettingKey(name), s.cfg.Provider(string(name)).APISecret)
}

func (s *SettingsService) getCredential(ctx context.Context, name ProviderName, key, fallback string) (string, error) {
	var encrypted string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("reading credential for %s: %w", name, err)
	}
	plaintext, err := s.encryptor.Decrypt(encrypted)
	if err != nil {
		return "", fmt.Errorf("decrypting credential for %s: %w", name, err)
	}
	return plaintext, nil
}

// SetAPIKey encrypts and stores the API key (and optional secret) for a
// provider. The upsert and status clear run in one transaction so the key
// status never goes stale if either fails.
func (s *SettingsService) SetAPIKey(ctx context.Context, name ProviderName, apiKey, apiSecret string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction for %s: %w", name, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is a no-op after commit

	if err := s.upsertEncrypted(ctx, tx, apiKeySettingKey(name), apiKey); err != nil {
		return fmt.Errorf("storing API key for %s: %w", name, err)
	}
	if apiSecret != "" {
		if err := s.upsertEncrypted(ctx, tx, apiSecretSettingKey(name), apiSecret); err != nil {
			return fmt.Errorf("storing API secret for %s: %w", name, err)
		}
	}
	// Clear stale status so the key shows as "untested" until re-verified.
	if _, err := tx.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", keyStatusSettingKey(name)); err != nil {
		return fmt.Errorf("clearing key status for %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing API key for %s: %w", name, err)
	}
	return nil
}

func (s *SettingsService) upsertEncrypted(ctx context.Context, tx *sql.Tx, key, plaintext string) error {
	encrypted, err := s.encryptor.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("encrypting: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = datetime('now')",
		key, encrypted, encrypted,
	)
	return err
}

// DeleteAPIKey removes the stored credentials and status for a provider.
func (s *SettingsService) DeleteAPIKey(ctx context.Context, name ProviderName) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction for %s: %w", name, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is a no-op after commit

	for _, key := range []string{apiKeySettingKey(name), apiSecretSettingKey(name), keyStatusSettingKey(name)} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
			return fmt.Errorf("deleting credential for %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete for %s: %w", name, err)
	}
	return nil
}

// SetKeyStatus persists the test result status ("ok", "invalid") for a
// provider key. An empty string deletes the status, reverting to "untested".
func (s *SettingsService) SetKeyStatus(ctx context.Context, name ProviderName, status string) error {
	key := keyStatusSettingKey(name)
	if status == "" {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
			return fmt.Errorf("clearing key status for %s: %w", name, err)
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = datetime('now')",
		key, status, status,
	)
	if err != nil {
		return fmt.Errorf("storing key status for %s: %w", name, err)
	}
	return nil
}

// GetKeyStatus returns the persisted test status for a provider key.
// Returns empty string if no status is stored.
func (s *SettingsService) GetKeyStatus(ctx context.Context, name ProviderName) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", keyStatusSettingKey(name)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading key status for %s: %w", name, err)
	}
	return value, nil
}

// providerRequiresKey returns whether a provider needs an API key.
func providerRequiresKey(name ProviderName) bool {
	switch name {
	case NameMusicBrainz, NameITunes, NameWikipedia:
		return false
	default:
		return true
	}
}

// IsEnabled reports whether a provider is administratively enabled. A settings
// table override wins over the config file flag.
func (s *SettingsService) IsEnabled(ctx context.Context, name ProviderName) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", enabledSettingKey(name)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return s.cfg.Provider(string(name)).IsEnabled(), nil
	}
	if err != nil {
		return false, fmt.Errorf("reading enabled flag for %s: %w", name, err)
	}
	return value == "true", nil
}

// SetEnabled stores an administrative enable/disable override for a provider.
func (s *SettingsService) SetEnabled(ctx context.Context, name ProviderName, enabled bool) error {
	val := "false"
	if enabled {
		val = "true"
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = datetime('now')",
		enabledSettingKey(name), val, val,
	)
	if err != nil {
		return fmt.Errorf("storing enabled flag for %s: %w", name, err)
	}
	return nil
}

// Priorities returns the global provider priority order: the settings table
// override when present, then the config file list, then the default order.
// Known providers missing from a stored list are appended in default order so
// newly-added providers take part without a settings reset.
func (s *SettingsService) Priorities(ctx context.Context) ([]ProviderName, error) {
	ordered := s.configPriorities()

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = 'provider.priority'").Scan(&value)
	if err == nil {
		var stored []ProviderName
		if jsonErr := json.Unmarshal([]byte(value), &stored); jsonErr == nil {
			ordered = stored
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reading provider priority: %w", err)
	}

	return appendMissing(ordered, AllProviderNames()), nil
}

func (s *SettingsService) configPriorities() []ProviderName {
	if len(s.cfg.Providers.Priority) == 0 {
		return AllProviderNames()
	}
	out := make([]ProviderName, 0, len(s.cfg.Providers.Priority))
	for _, raw := range s.cfg.Providers.Priority {
		out = append(out, ProviderName(raw))
	}
	return out
}

func appendMissing(ordered, all []ProviderName) []ProviderName {
	seen := make(map[ProviderName]bool, len(ordered))
	for _, p := range ordered {
		seen[p] = true
	}
	for _, p := range all {
		if !seen[p] {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

// SetPriorities stores the global provider priority order.
func (s *SettingsService) SetPriorities(ctx context.Context, names []ProviderName) error {
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("marshaling provider priority: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES ('provider.priority', ?) ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = datetime('now')",
		string(data), string(data),
	)
	if err != nil {
		return fmt.Errorf("storing provider priority: %w", err)
	}
	return nil
}

// Policy returns the configured fan-out policy (config.PolicyFallback or
// config.PolicyFanOut), with a settings table override.
func (s *SettingsService) Policy(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = 'lookup.policy'").Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return s.cfg.Lookup.Policy, nil
	}
	if err != nil {
		return "", fmt.Errorf("reading lookup policy: %w", err)
	}
	if value != config.PolicyFallback && value != config.PolicyFanOut {
		return s.cfg.Lookup.Policy, nil
	}
	return value, nil
}

// SetPolicy stores a fan-out policy override.
func (s *SettingsService) SetPolicy(ctx context.Context, policy string) error {
	if policy != config.PolicyFallback && policy != config.PolicyFanOut {
		return fmt.Errorf("invalid lookup policy %q", policy)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES ('lookup.policy', ?) ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = datetime('now')",
		policy, policy,
	)
	if err != nil {
		return fmt.Errorf("storing lookup policy: %w", err)
	}
	return nil
}

// EnabledProviders returns the provider names that may be queried, in
// priority order: administratively enabled, and holding credentials when the
// provider requires them.
func (s *SettingsService) EnabledProviders(ctx context.Context) ([]ProviderName, error) {
	ordered, err := s.Priorities(ctx)
	if err != nil {
		return nil, err
	}

	var enabled []ProviderName
	for _, name := range ordered {
		on, err := s.IsEnabled(ctx, name)
		if err != nil {
			return nil, err
		}
		if !on {
			continue
		}
		if providerRequiresKey(name) {
			key, err := s.GetAPIKey(ctx, name)
			if err != nil {
				return nil, err
			}
			if key == "" {
				continue
			}
		}
		enabled = append(enabled, name)
	}
	return enabled, nil
}

// ProviderKeyStatus describes the credential state for a provider.
type ProviderKeyStatus struct {
	Name        ProviderName   `json:"name"`
	DisplayName string         `json:"display_name"`
	RequiresKey bool           `json:"requires_key"`
	HasKey      bool           `json:"has_key"`
	Enabled     bool           `json:"enabled"`
	Status      string         `json:"status"` // "ok", "invalid", "untested", "not_required", "unconfigured"
	AccessTier  AccessTier     `json:"access_tier"`
	HelpURL     string         `json:"help_url,omitempty"`
	RateLimit   *RateLimitInfo `json:"rate_limit,omitempty"`
}

// ListProviderKeyStatuses returns the credential state for all known providers.
func (s *SettingsService) ListProviderKeyStatuses(ctx context.Context) ([]ProviderKeyStatus, error) {
	caps := ProviderCapabilities()
	var statuses []ProviderKeyStatus
	for _, name := range AllProviderNames() {
		requiresKey := providerRequiresKey(name)
		key, err := s.GetAPIKey(ctx, name)
		if err != nil {
			return nil, err
		}
		enabled, err := s.IsEnabled(ctx, name)
		if err != nil {
			return nil, err
		}
		hasKey := key != ""

		status := "unconfigured"
		switch {
		case !requiresKey:
			status = "not_required"
		case hasKey:
			status = "untested"
			persisted, err := s.GetKeyStatus(ctx, name)
			if err != nil {
				return nil, err
			}
			if persisted != "" {
				status = persisted
			}
		}

		capability := caps[name]
		statuses = append(statuses, ProviderKeyStatus{
			Name:        name,
			DisplayName: name.DisplayName(),
			RequiresKey: requiresKey,
			HasKey:      hasKey,
			Enabled:     enabled,
			Status:      status,
			AccessTier:  capability.Tier,
			HelpURL:     capability.HelpURL,
			RateLimit:   capability.RateLimit,
		})
	}
	return statuses, nil
}
