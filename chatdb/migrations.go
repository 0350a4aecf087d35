// Copyright (C) 2025 ente-x
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package chatdb

import (
	"database/sql"
	"fmt"

	"github.com/ente-x/cryptocore/internal/errs"
)

// schemaVersion is the schema version this binary expects. PRAGMA
// user_version gates a linear migration sequence: 0 means an empty
// database (apply createTablesSQL), anything else must match exactly.
const schemaVersion = 1

const createTablesSQL = `
CREATE TABLE sessions (
	session_uuid TEXT PRIMARY KEY,
	title        BLOB NOT NULL,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL,
	remote_id    TEXT,
	needs_sync   INTEGER NOT NULL DEFAULT 1,
	deleted_at   INTEGER
);

CREATE INDEX idx_sessions_updated ON sessions (updated_at DESC);

CREATE TABLE messages (
	message_uuid        TEXT PRIMARY KEY,
	session_uuid        TEXT NOT NULL REFERENCES sessions(session_uuid) ON DELETE CASCADE,
	parent_message_uuid TEXT,
	sender              TEXT NOT NULL,
	text                BLOB NOT NULL,
	attachments         TEXT,
	created_at          INTEGER NOT NULL,
	deleted_at          INTEGER
);

CREATE INDEX idx_messages_order ON messages (session_uuid, created_at, message_uuid);
`

// runMigrations brings a freshly opened database up to schemaVersion. A
// user_version of 0 means an empty database ready for createTablesSQL; a
// mismatched nonzero version means this binary is too old for the database
// on disk (there is no forward path defined yet beyond version 1).
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return fmt.Errorf("chatdb: %w: enable foreign keys: %v", errs.ErrDB, err)
	}

	var userVersion int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&userVersion); err != nil {
		return fmt.Errorf("chatdb: %w: read user_version: %v", errs.ErrDB, err)
	}

	switch {
	case userVersion == 0:
		if _, err := db.Exec(createTablesSQL); err != nil {
			return fmt.Errorf("chatdb: %w: create tables: %v", errs.ErrDB, err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d;", schemaVersion)); err != nil {
			return fmt.Errorf("chatdb: %w: set user_version: %v", errs.ErrDB, err)
		}
		return nil
	case userVersion != schemaVersion:
		return fmt.Errorf("chatdb: %w: on-disk schema version %d, binary expects %d", errs.ErrUnsupportedSchema, userVersion, schemaVersion)
	default:
		return nil
	}
}
