package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('admin', 'librarian', 'member')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS books (
    id         INTEGER PRIMARY KEY,
    title      TEXT NOT NULL,
    isbn       TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS copies (
    id          INTEGER PRIMARY KEY,
    book_id     INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
    copy_number INTEGER NOT NULL,
    status      TEXT NOT NULL DEFAULT 'available'
                CHECK (status IN ('available', 'checked_out', 'reserved', 'lost', 'maintenance')),
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (book_id, copy_number)
);

CREATE INDEX IF NOT EXISTS idx_copies_book_status ON copies(book_id, status);

CREATE TABLE IF NOT EXISTS loans (
    id            TEXT PRIMARY KEY,
    copy_id       INTEGER NOT NULL REFERENCES copies(id) ON DELETE CASCADE,
    book_id       INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
    user_id       TEXT NOT NULL,
    borrowed_at   DATETIME NOT NULL,
    due_at        DATETIME NOT NULL,
    returned_at   DATETIME,
    renewal_count INTEGER NOT NULL DEFAULT 0 CHECK (renewal_count >= 0),
    CHECK (due_at >= borrowed_at)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_loans_open_copy
    ON loans(copy_id) WHERE returned_at IS NULL;

CREATE INDEX IF NOT EXISTS idx_loans_user_open
    ON loans(user_id) WHERE returned_at IS NULL;

CREATE TABLE IF NOT EXISTS reservations (
    id           INTEGER PRIMARY KEY,
    user_id      TEXT NOT NULL,
    book_id      INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
    reserved_at  DATETIME NOT NULL,
    status       TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'fulfilled', 'canceled')),
    fulfilled_at DATETIME,
    canceled_at  DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_reservations_active
    ON reservations(user_id, book_id) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS cart_items (
    user_id  TEXT NOT NULL,
    book_id  INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
    added_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, book_id)
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
