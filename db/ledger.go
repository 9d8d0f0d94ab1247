package db

import (
	"database/sql"
	"fmt"
	"time"

	"dropwatch/aggregator"
	"dropwatch/fingerprint"
	"dropwatch/models"
)

// NoveltyRecord is one row of the novelty relation: everything ever seen,
// with its sent/unsent state.
type NoveltyRecord struct {
	Fingerprint string
	Title       string
	Link        string
	Price       string
	Image       string
	Description string
	CreatedAt   time.Time
	FirstSeenAt time.Time
	SentAt      sql.NullTime
}

// Ledger is the persisted novelty store. It exclusively owns the novelty
// relation; no other component writes to it.
type Ledger struct {
	db     *DB
	maxAge time.Duration
}

// NewLedger creates a Ledger. maxAge is the staleness window for the
// first_seen_at refresh; it does not affect classification.
func NewLedger(database *DB, maxAge time.Duration) *Ledger {
	return &Ledger{db: database, maxAge: maxAge}
}

// Classify decides whether a product is new to notify and persists a row
// for first-time fingerprints. The decision is governed by sent_at alone:
// an unsent record stays New no matter how old it is, so items re-surfaced
// by brand-scoped pages still get dispatched.
func (l *Ledger) Classify(p models.Product) (aggregator.Status, error) {
	fp := fingerprint.Of(p)

	var sentAt sql.NullTime
	err := l.db.conn.QueryRow(`SELECT sent_at FROM novelty WHERE fingerprint = $1`, fp).Scan(&sentAt)

	if err == sql.ErrNoRows {
		// ON CONFLICT DO NOTHING keeps a concurrent duplicate insert a no-op.
		_, err = l.db.conn.Exec(`
			INSERT INTO novelty (fingerprint, title, link, price, image, description)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (fingerprint) DO NOTHING
		`, fp, p.Title, p.Link, p.Price, p.Image, p.Description)
		if err != nil {
			return aggregator.StatusNew, fmt.Errorf("failed to insert novelty record: %w", err)
		}
		return aggregator.StatusNew, nil
	}

	if err != nil {
		return aggregator.StatusNew, fmt.Errorf("failed to query novelty record: %w", err)
	}

	// Bookkeeping only: refresh first_seen_at when the record reappears
	// after the staleness window.
	_, err = l.db.conn.Exec(`
		UPDATE novelty
		SET first_seen_at = CURRENT_TIMESTAMP
		WHERE fingerprint = $1 AND first_seen_at < CURRENT_TIMESTAMP - ($2 * INTERVAL '1 second')
	`, fp, int64(l.maxAge.Seconds()))
	if err != nil {
		return aggregator.StatusNew, fmt.Errorf("failed to refresh first_seen_at: %w", err)
	}

	if sentAt.Valid {
		return aggregator.StatusAlreadyNotified, nil
	}
	return aggregator.StatusNew, nil
}

// MarkSent records that a fingerprint's item was dispatched. It is
// idempotent and sent_at is never cleared afterwards.
func (l *Ledger) MarkSent(fp string) error {
	_, err := l.db.conn.Exec(`
		UPDATE novelty SET sent_at = CURRENT_TIMESTAMP WHERE fingerprint = $1 AND sent_at IS NULL
	`, fp)
	if err != nil {
		return fmt.Errorf("failed to mark as sent: %w", err)
	}
	return nil
}

// GetRecord fetches a single novelty row, or nil if the fingerprint is
// unknown.
func (l *Ledger) GetRecord(fp string) (*NoveltyRecord, error) {
	var rec NoveltyRecord
	err := l.db.conn.QueryRow(`
		SELECT fingerprint, title, link, price, image, description, created_at, first_seen_at, sent_at
		FROM novelty WHERE fingerprint = $1
	`, fp).Scan(
		&rec.Fingerprint, &rec.Title, &rec.Link, &rec.Price, &rec.Image,
		&rec.Description, &rec.CreatedAt, &rec.FirstSeenAt, &rec.SentAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
