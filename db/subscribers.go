package db

import (
	"database/sql"
	"fmt"
)

// UpsertSubscriber creates or refreshes a subscriber row and marks the user
// subscribed. Used by the /start command.
func (db *DB) UpsertSubscriber(userID int64, username, firstName, lastName string) error {
	_, err := db.conn.Exec(`
		INSERT INTO subscribers (user_id, username, first_name, last_name, subscribed, last_active)
		VALUES ($1, $2, $3, $4, TRUE, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    subscribed = TRUE,
		    last_active = CURRENT_TIMESTAMP
	`, userID, username, firstName, lastName)
	if err != nil {
		return fmt.Errorf("failed to upsert subscriber: %w", err)
	}
	return nil
}

// Unsubscribe turns off delivery for a user. Returns false if the user was
// never registered.
func (db *DB) Unsubscribe(userID int64) (bool, error) {
	res, err := db.conn.Exec(`
		UPDATE subscribers SET subscribed = FALSE WHERE user_id = $1
	`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to unsubscribe: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IsSubscribed reports whether the user currently receives notifications.
func (db *DB) IsSubscribed(userID int64) (bool, error) {
	var subscribed bool
	err := db.conn.QueryRow(`
		SELECT subscribed FROM subscribers WHERE user_id = $1
	`, userID).Scan(&subscribed)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query subscription: %w", err)
	}
	return subscribed, nil
}

// SubscribedUsers returns the dispatch fan-out list.
func (db *DB) SubscribedUsers() ([]int64, error) {
	rows, err := db.conn.Query(`SELECT user_id FROM subscribers WHERE subscribed = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}
