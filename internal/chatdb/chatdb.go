// Package chatdb reads the iMessage message store (chat.db) read-only.
// It is the pipeline's only view of the source database: one message query
// bounded by a row limit and an optional since-filter, plus a group-chat
// participant query used to seed the mapping store.
package chatdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// appleEpochUnix is 2001-01-01T00:00:00Z as a Unix timestamp. chat.db
// stores dates as nanoseconds since that instant.
const appleEpochUnix = 978307200

// rowDateLayout is the localtime form the message query renders dates in.
const rowDateLayout = "2006-01-02 15:04:05"

// Row is one raw message row as the source store hands it over. Text and
// AttributedBody are both optional; either one may carry the content.
type Row struct {
	MessageID       int64
	Text            string
	HasText         bool
	AttributedBody  []byte
	IsFromMe        bool
	Date            string
	HandleID        string
	ChatIdentifier  string
	ChatDisplayName string
	Service         string
}

// GroupInfo is one group chat row: the explicit display name (may be empty)
// and the participant handles.
type GroupInfo struct {
	DisplayName  string
	Participants []string
}

// DB wraps a read-only connection to chat.db.
type DB struct {
	db *sql.DB
}

// DefaultPath returns the standard chat.db location under the user's home.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Messages", "chat.db")
}

// Open opens chat.db read-only. The file must already exist; this package
// never creates or modifies the source store.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("chat.db not found at %s (Full Disk Access required for Terminal): %w", path, err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open chat.db: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// QueryMessages returns up to limit rows ordered most-recent-first. A
// non-empty since (localtime "2006-01-02 15:04:05") restricts the window to
// strictly newer messages for incremental runs.
func (d *DB) QueryMessages(ctx context.Context, limit int, since string) ([]Row, error) {
	// Built by concatenation rather than Sprintf: the strftime('%s', ...)
	// literal inside the SELECT would collide with a format verb.
	query := `
		SELECT DISTINCT
			m.ROWID,
			m.text,
			m.attributedBody,
			m.is_from_me,
			datetime(m.date / 1000000000 + strftime('%s', '2001-01-01'), 'unixepoch', 'localtime'),
			h.id,
			c.chat_identifier,
			c.display_name,
			m.service
		FROM message m
		LEFT JOIN chat_message_join cmj ON m.ROWID = cmj.message_id
		LEFT JOIN chat c ON cmj.chat_id = c.ROWID
		LEFT JOIN handle h ON m.handle_id = h.ROWID
		WHERE 1=1
	`

	var args []any
	if since != "" {
		nanos, err := sinceToAppleNanos(since)
		if err != nil {
			return nil, fmt.Errorf("invalid since timestamp %q: %w", since, err)
		}
		query += " AND m.date > ?"
		args = append(args, nanos)
	}
	query += " ORDER BY m.date DESC LIMIT ?"
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("message query failed: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var text, date, handle, chatID, chatName, service sql.NullString
		var fromMe sql.NullInt64
		if err := rows.Scan(&r.MessageID, &text, &r.AttributedBody, &fromMe, &date, &handle, &chatID, &chatName, &service); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		r.Text = text.String
		r.HasText = text.Valid && text.String != ""
		r.IsFromMe = fromMe.Int64 == 1
		r.Date = date.String
		r.HandleID = handle.String
		r.ChatIdentifier = chatID.String
		r.ChatDisplayName = chatName.String
		r.Service = service.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("message iteration failed: %w", err)
	}
	return out, nil
}

// QueryGroupChats returns every group thread (chat_identifier LIKE 'chat%')
// that has at least one participant, keyed by chat identifier.
func (d *DB) QueryGroupChats(ctx context.Context) (map[string]GroupInfo, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT ROWID, chat_identifier, COALESCE(display_name, '')
		FROM chat
		WHERE chat_identifier LIKE 'chat%'
	`)
	if err != nil {
		return nil, fmt.Errorf("group chat query failed: %w", err)
	}

	type chatRef struct {
		rowID       int64
		displayName string
	}
	refs := make(map[string]chatRef)
	for rows.Next() {
		var rowID int64
		var chatID, displayName string
		if err := rows.Scan(&rowID, &chatID, &displayName); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		refs[chatID] = chatRef{rowID: rowID, displayName: displayName}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("chat iteration failed: %w", err)
	}
	rows.Close()

	out := make(map[string]GroupInfo, len(refs))
	for chatID, ref := range refs {
		prows, err := d.db.QueryContext(ctx, `
			SELECT h.id
			FROM handle h
			JOIN chat_handle_join chj ON h.ROWID = chj.handle_id
			WHERE chj.chat_id = ?
		`, ref.rowID)
		if err != nil {
			return nil, fmt.Errorf("participant query failed for %s: %w", chatID, err)
		}
		var participants []string
		for prows.Next() {
			var id string
			if err := prows.Scan(&id); err != nil {
				prows.Close()
				return nil, fmt.Errorf("failed to scan participant: %w", err)
			}
			participants = append(participants, id)
		}
		if err := prows.Err(); err != nil {
			prows.Close()
			return nil, fmt.Errorf("participant iteration failed: %w", err)
		}
		prows.Close()

		if len(participants) > 0 {
			out[chatID] = GroupInfo{DisplayName: ref.displayName, Participants: participants}
		}
	}
	return out, nil
}

// sinceToAppleNanos converts a localtime row date back to the store's
// nanoseconds-since-2001 form.
func sinceToAppleNanos(since string) (int64, error) {
	t, err := time.ParseInLocation(rowDateLayout, since, time.Local)
	if err != nil {
		return 0, err
	}
	return (t.Unix() - appleEpochUnix) * int64(time.Second), nil
}
