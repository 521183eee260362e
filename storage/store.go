// Package storage persists per-user shopping preferences and the
// encrypted platform API token in SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Preferences holds a user's saved retailer and delivery area. Sessions
// are seeded from these at start; nothing reads them mid-checkout.
type Preferences struct {
	UserID       string
	RetailerID   string
	RetailerName string
	ZipCode      string
	LastUpdated  time.Time
}

// PreferenceStore defines the interface for preference persistence.
type PreferenceStore interface {
	GetPreferences(userID string) (*Preferences, error)
	SavePreferences(prefs *Preferences) error
	DeletePreferences(userID string) error

	// Platform token methods (token stored encrypted at rest)
	GetPlatformToken(userID string) (string, error)
	SavePlatformToken(userID, token string) error

	Close() error
}

// SQLiteStore implements PreferenceStore using SQLite with encrypted tokens.
type SQLiteStore struct {
	db            *sql.DB
	encryptionKey []byte
	mu            sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based preference store.
// The dbPath is the path to the SQLite database file.
// The encryptionKey is used to encrypt/decrypt the platform token.
func NewSQLiteStore(dbPath string, encryptionKey []byte) (*SQLiteStore, error) {
	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set file permissions (only works on creation)
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		// Ignore error if file doesn't exist yet
	}

	store := &SQLiteStore{
		db:            db,
		encryptionKey: encryptionKey,
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	preferencesQuery := `
	CREATE TABLE IF NOT EXISTS user_preferences (
		user_id TEXT PRIMARY KEY,
		retailer_id TEXT NOT NULL,
		retailer_name TEXT NOT NULL,
		zip_code TEXT NOT NULL,
		last_updated DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(preferencesQuery)
	if err != nil {
		return fmt.Errorf("failed to create user_preferences table: %w", err)
	}

	tokensQuery := `
	CREATE TABLE IF NOT EXISTS platform_tokens (
		user_id TEXT PRIMARY KEY,
		encrypted_token TEXT NOT NULL,
		last_updated DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err = s.db.Exec(tokensQuery)
	if err != nil {
		return fmt.Errorf("failed to create platform_tokens table: %w", err)
	}

	return nil
}

// GetPreferences retrieves a user's saved preferences.
// Returns nil, nil if no preferences exist.
func (s *SQLiteStore) GetPreferences(userID string) (*Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefs := Preferences{UserID: userID}
	err := s.db.QueryRow(
		"SELECT retailer_id, retailer_name, zip_code, last_updated FROM user_preferences WHERE user_id = ?",
		userID,
	).Scan(&prefs.RetailerID, &prefs.RetailerName, &prefs.ZipCode, &prefs.LastUpdated)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}

	return &prefs, nil
}

// SavePreferences stores or updates a user's preferences.
func (s *SQLiteStore) SavePreferences(prefs *Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs.LastUpdated = time.Now()

	_, err := s.db.Exec(`
		INSERT INTO user_preferences (user_id, retailer_id, retailer_name, zip_code, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			retailer_id = excluded.retailer_id,
			retailer_name = excluded.retailer_name,
			zip_code = excluded.zip_code,
			last_updated = excluded.last_updated
	`, prefs.UserID, prefs.RetailerID, prefs.RetailerName, prefs.ZipCode, prefs.LastUpdated)

	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}

	return nil
}

// DeletePreferences removes a user's preferences.
func (s *SQLiteStore) DeletePreferences(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM user_preferences WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to delete preferences: %w", err)
	}

	return nil
}

// GetPlatformToken retrieves and decrypts a user's platform API token.
// Returns empty string if no token is stored.
func (s *SQLiteStore) GetPlatformToken(userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var encrypted string
	err := s.db.QueryRow(
		"SELECT encrypted_token FROM platform_tokens WHERE user_id = ?",
		userID,
	).Scan(&encrypted)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query platform token: %w", err)
	}

	token, err := Decrypt(encrypted, s.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt platform token: %w", err)
	}

	return string(token), nil
}

// SavePlatformToken encrypts and stores a user's platform API token.
func (s *SQLiteStore) SavePlatformToken(userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	encrypted, err := Encrypt([]byte(token), s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt platform token: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO platform_tokens (user_id, encrypted_token, last_updated)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			encrypted_token = excluded.encrypted_token,
			last_updated = CURRENT_TIMESTAMP
	`, userID, encrypted)

	if err != nil {
		return fmt.Errorf("failed to save platform token: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
