// Package store persists events, venues and scan cities to SQLite.
// It is suitable for single-process production use.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/lnup/eventscout/internal/model"
)

var (
	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("store is closed")
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrLeaseHeld is returned when another run holds the scan lease.
	ErrLeaseHeld = errors.New("scan lease held by another run")
)

// Store is a SQLite-backed event store.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// Open creates or opens a store at path. Use ":memory:" for testing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS venues (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		address    TEXT NOT NULL DEFAULT '',
		city       TEXT NOT NULL DEFAULT '',
		lat        REAL NOT NULL DEFAULT 0,
		lon        REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_venues_name_city
		ON venues(name, city)`,
	`CREATE TABLE IF NOT EXISTS events (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		venue_id    TEXT REFERENCES venues(id),
		event_date  TEXT NOT NULL,
		time_start  TEXT NOT NULL DEFAULT '',
		time_end    TEXT NOT NULL DEFAULT '',
		category    TEXT NOT NULL,
		price_info  TEXT NOT NULL DEFAULT '',
		source_type TEXT NOT NULL,
		source_url  TEXT NOT NULL DEFAULT '',
		confidence  REAL NOT NULL DEFAULT 0,
		image_url   TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT 'active',
		dedup_key   TEXT NOT NULL,
		created_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_dedup_key
		ON events(dedup_key)`,
	`CREATE INDEX IF NOT EXISTS idx_events_status_date
		ON events(status, event_date)`,
	`CREATE TABLE IF NOT EXISTS cities (
		name         TEXT PRIMARY KEY,
		scan_enabled INTEGER NOT NULL DEFAULT 1,
		last_scanned TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS leases (
		name       TEXT PRIMARY KEY,
		holder     TEXT NOT NULL,
		expires_at TEXT NOT NULL
	)`,
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// ExistingKeys reports which of the given dedup keys already have an event
// row, regardless of status. Used to make repeated scans idempotent.
func (s *Store) ExistingKeys(keys []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	existing := make(map[string]bool, len(keys))
	// SQLite caps bound parameters, so query in chunks.
	const chunkSize = 500
	for start := 0; start < len(keys); start += chunkSize {
		end := start + chunkSize
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		placeholders := strings.Repeat("?,", len(chunk))
		placeholders = placeholders[:len(placeholders)-1]
		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}

		rows, err := s.db.Query(
			`SELECT dedup_key FROM events WHERE dedup_key IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("query dedup keys: %w", err)
		}
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan dedup key: %w", err)
			}
			existing[k] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterate dedup keys: %w", err)
		}
		rows.Close()
	}
	return existing, nil
}

// InsertEvent persists an event. Inserting an event whose ID already exists
// is a no-op, so re-running a scan never duplicates rows.
func (s *Store) InsertEvent(ev model.Event, venueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	status := ev.Status
	if status == "" {
		status = model.StatusActive
	}

	var venue any
	if venueID != "" {
		venue = venueID
	}

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO events (
			id, title, description, venue_id, event_date, time_start, time_end,
			category, price_info, source_type, source_url, confidence,
			image_url, status, dedup_key, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Title, ev.Description, venue, ev.Date, ev.TimeStart, ev.TimeEnd,
		string(ev.Category), ev.PriceInfo, string(ev.SourceType), ev.SourceURL,
		ev.Confidence, ev.ImageURL, string(status), ev.DedupKey(),
		createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEvent loads one event by ID, joining its venue.
func (s *Store) GetEvent(id string) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Event{}, ErrStoreClosed
	}

	var (
		ev        model.Event
		category  string
		source    string
		status    string
		createdAt string
		venueID   sql.NullString
		vName     sql.NullString
		vAddress  sql.NullString
		vCity     sql.NullString
		vLat      sql.NullFloat64
		vLng      sql.NullFloat64
	)
	err := s.db.QueryRow(`
		SELECT e.id, e.title, e.description, e.event_date, e.time_start,
		       e.time_end, e.category, e.price_info, e.source_type,
		       e.source_url, e.confidence, e.image_url, e.status, e.created_at,
		       e.venue_id, v.name, v.address, v.city, v.lat, v.lon
		FROM events e LEFT JOIN venues v ON v.id = e.venue_id
		WHERE e.id = ?`, id).Scan(
		&ev.ID, &ev.Title, &ev.Description, &ev.Date, &ev.TimeStart,
		&ev.TimeEnd, &category, &ev.PriceInfo, &source,
		&ev.SourceURL, &ev.Confidence, &ev.ImageURL, &status, &createdAt,
		&venueID, &vName, &vAddress, &vCity, &vLat, &vLng)
	if err == sql.ErrNoRows {
		return model.Event{}, ErrNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("load event: %w", err)
	}

	ev.Category = model.Category(category)
	ev.SourceType = model.SourceType(source)
	ev.Status = model.Status(status)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		ev.CreatedAt = t
	}
	if venueID.Valid {
		ev.Venue = &model.Venue{
			Name:    vName.String,
			Address: vAddress.String,
			City:    vCity.String,
			Lat:     vLat.Float64,
			Lng:     vLng.Float64,
		}
	}
	return ev, nil
}

// CountEvents returns the number of events with the given status.
func (s *Store) CountEvents(status model.Status) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStoreClosed
	}
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM events WHERE status = ?`,
		string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// ResolveVenue returns the ID of the venue with this exact name and city,
// creating it when missing. Fuzzy venue matching happens upstream during
// aggregation; storage uses exact names only.
func (s *Store) ResolveVenue(v model.Venue) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrStoreClosed
	}

	var id string
	err := s.db.QueryRow(
		`SELECT id FROM venues WHERE name = ? AND city = ?`,
		v.Name, v.City).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("lookup venue: %w", err)
	}

	id = uuid.NewString()
	_, err = s.db.Exec(`
		INSERT INTO venues (id, name, address, city, lat, lon, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, v.Name, v.Address, v.City, v.Lat, v.Lng,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("create venue: %w", err)
	}
	return id, nil
}

// UpsertCity records a city name, leaving scan_enabled untouched when the
// row already exists.
func (s *Store) UpsertCity(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	_, err := s.db.Exec(`
		INSERT INTO cities (name) VALUES (?)
		ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return fmt.Errorf("upsert city: %w", err)
	}
	return nil
}

// ScanEnabledCities lists the cities queued for AI discovery.
func (s *Store) ScanEnabledCities() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(
		`SELECT name FROM cities WHERE scan_enabled = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	defer rows.Close()

	var cities []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan city: %w", err)
		}
		cities = append(cities, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cities: %w", err)
	}
	return cities, nil
}

// SetCityScanEnabled toggles whether a city participates in scans.
func (s *Store) SetCityScanEnabled(name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	val := 0
	if enabled {
		val = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO cities (name, scan_enabled) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET scan_enabled = excluded.scan_enabled`,
		name, val)
	if err != nil {
		return fmt.Errorf("set city scan flag: %w", err)
	}
	return nil
}

// MarkCityScanned stamps the last successful scan time of a city.
func (s *Store) MarkCityScanned(name string, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	_, err := s.db.Exec(
		`UPDATE cities SET last_scanned = ? WHERE name = ?`,
		when.UTC().Format(time.RFC3339), name)
	if err != nil {
		return fmt.Errorf("mark city scanned: %w", err)
	}
	return nil
}

// ArchivePast flips active events dated before today to past. today is a
// YYYY-MM-DD date; events on today stay active through the day. Rows are
// never deleted.
func (s *Store) ArchivePast(today string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStoreClosed
	}

	if _, err := time.Parse("2006-01-02", today); err != nil {
		return 0, fmt.Errorf("parse date %q: %w", today, err)
	}

	res, err := s.db.Exec(`
		UPDATE events SET status = ?
		WHERE status = ? AND event_date < ?`,
		string(model.StatusPast), string(model.StatusActive), today)
	if err != nil {
		return 0, fmt.Errorf("archive events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("archive events: %w", err)
	}
	return int(n), nil
}

// AcquireLease takes the scan lease for holder, expiring after ttl.
// Returns ErrLeaseHeld while another holder's unexpired lease exists.
// A holder may re-acquire its own lease to extend it.
func (s *Store) AcquireLease(holder string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	now := time.Now().UTC()
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin lease tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM leases WHERE name = 'scan' AND expires_at <= ?`,
		now.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("expire leases: %w", err)
	}

	var current string
	err = tx.QueryRow(`SELECT holder FROM leases WHERE name = 'scan'`).Scan(&current)
	switch {
	case err == sql.ErrNoRows:
		// free
	case err != nil:
		return fmt.Errorf("check lease: %w", err)
	case current != holder:
		return ErrLeaseHeld
	}

	if _, err := tx.Exec(`
		INSERT INTO leases (name, holder, expires_at) VALUES ('scan', ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			holder = excluded.holder, expires_at = excluded.expires_at`,
		holder, now.Add(ttl).Format(time.RFC3339)); err != nil {
		return fmt.Errorf("take lease: %w", err)
	}
	return tx.Commit()
}

// ReleaseLease frees the scan lease if holder owns it.
func (s *Store) ReleaseLease(holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	_, err := s.db.Exec(
		`DELETE FROM leases WHERE name = 'scan' AND holder = ?`, holder)
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}
