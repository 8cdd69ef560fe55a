// Package devicestore provides the durable persistence MediaBus's
// Runtime writes through to: host settings, the paired-device list, and
// the HMAC signing secret. Backed by SQLite, the same way the teacher's
// own API layer persists its state.
package devicestore

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const secretByteLength = 32

// Store provides SQLite persistence for MediaBus's durable state.
type Store struct {
	db *sql.DB
	mu sync.Mutex

	subMu sync.Mutex
	subs  []chan HostSettings
}

// NewStore opens (creating if necessary) the database at dbPath. Use
// ":memory:" for an ephemeral, test-only store.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("devicestore: open database: %w", err)
	}

	if _, err := db.Exec(`
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("devicestore: configure database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("devicestore: migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 0),
		shared_folder_path TEXT NOT NULL DEFAULT '',
		show_hidden_files INTEGER NOT NULL DEFAULT 0,
		allow_upload INTEGER NOT NULL DEFAULT 1,
		allow_download INTEGER NOT NULL DEFAULT 1,
		allow_delete INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS paired_devices (
		device_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		user_agent TEXT NOT NULL,
		last_known_ip TEXT NOT NULL,
		created_at_ms INTEGER NOT NULL,
		last_connected_at_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS secret (
		id INTEGER PRIMARY KEY CHECK (id = 0),
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadSettings returns the persisted HostSettings, or the defaults if
// none have ever been saved.
func (s *Store) LoadSettings() (HostSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st HostSettings
	var showHidden, allowUpload, allowDownload, allowDelete int
	err := s.db.QueryRow(`
		SELECT shared_folder_path, show_hidden_files, allow_upload, allow_download, allow_delete
		FROM settings WHERE id = 0
	`).Scan(&st.SharedFolderPath, &showHidden, &allowUpload, &allowDownload, &allowDelete)

	if err == sql.ErrNoRows {
		return DefaultHostSettings(), nil
	}
	if err != nil {
		return HostSettings{}, err
	}

	st.ShowHiddenFiles = showHidden != 0
	st.AllowUpload = allowUpload != 0
	st.AllowDownload = allowDownload != 0
	st.AllowDelete = allowDelete != 0
	return st, nil
}

// SaveSettings persists settings and notifies every WatchSettings
// subscriber. Runtime.UpdateSettings writes through here.
func (s *Store) SaveSettings(settings HostSettings) error {
	s.mu.Lock()
	_, err := s.db.Exec(`
		INSERT INTO settings (id, shared_folder_path, show_hidden_files, allow_upload, allow_download, allow_delete)
		VALUES (0, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			shared_folder_path = excluded.shared_folder_path,
			show_hidden_files = excluded.show_hidden_files,
			allow_upload = excluded.allow_upload,
			allow_download = excluded.allow_download,
			allow_delete = excluded.allow_delete
	`, settings.SharedFolderPath, boolToInt(settings.ShowHiddenFiles),
		boolToInt(settings.AllowUpload), boolToInt(settings.AllowDownload), boolToInt(settings.AllowDelete))
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.broadcastSettings(settings)
	return nil
}

// WatchSettings returns a channel that receives a HostSettings snapshot
// after every SaveSettings call. The channel has a buffer of one; a slow
// reader observes only the most recent snapshot, never a backlog.
func (s *Store) WatchSettings() <-chan HostSettings {
	ch := make(chan HostSettings, 1)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

func (s *Store) broadcastSettings(settings HostSettings) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- settings:
		default:
			// Drain the stale value and replace it so the subscriber
			// always sees the latest snapshot rather than a backlog.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- settings:
			default:
			}
		}
	}
}

// LoadDevices returns every paired device, sorted by LastConnectedAtMs
// descending.
func (s *Store) LoadDevices() ([]PairedDevice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT device_id, display_name, user_agent, last_known_ip, created_at_ms, last_connected_at_ms
		FROM paired_devices
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []PairedDevice
	for rows.Next() {
		var d PairedDevice
		if err := rows.Scan(&d.DeviceID, &d.DisplayName, &d.UserAgent, &d.LastKnownIP, &d.CreatedAtMs, &d.LastConnectedAtMs); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].LastConnectedAtMs > devices[j].LastConnectedAtMs
	})
	return devices, nil
}

// SaveDevices replaces the entire paired-device table with list, the
// full-snapshot write-through Runtime performs after every mutation.
// Concurrent callers serialize on s.mu; MediaBus's Runtime is the only
// writer, so last-writer-wins is an acceptable, documented behavior.
func (s *Store) SaveDevices(list []PairedDevice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM paired_devices`); err != nil {
		return err
	}
	for _, d := range list {
		if _, err := tx.Exec(`
			INSERT INTO paired_devices (device_id, display_name, user_agent, last_known_ip, created_at_ms, last_connected_at_ms)
			VALUES (?, ?, ?, ?, ?, ?)
		`, d.DeviceID, d.DisplayName, d.UserAgent, d.LastKnownIP, d.CreatedAtMs, d.LastConnectedAtMs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadOrCreateSecret returns the persisted 32-byte HMAC signing secret,
// generating and persisting a new random one on first use.
func (s *Store) LoadOrCreateSecret() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var encoded string
	err := s.db.QueryRow(`SELECT value FROM secret WHERE id = 0`).Scan(&encoded)
	if err == nil {
		return base64.StdEncoding.DecodeString(encoded)
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	secret := make([]byte, secretByteLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("devicestore: generate secret: %w", err)
	}
	encoded = base64.StdEncoding.EncodeToString(secret)
	if _, err := s.db.Exec(`INSERT INTO secret (id, value) VALUES (0, ?)`, encoded); err != nil {
		return nil, err
	}
	return secret, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
