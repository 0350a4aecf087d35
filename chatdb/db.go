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
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ente-x/cryptocore/internal/errs"
)

// ChatDB is the encrypted chat datastore. All methods are safe for
// concurrent use; the underlying connection is serialized by a mutex, so
// concurrent callers block rather than race.
type ChatDB struct {
	backend *backend
	key     []byte
	clock   Clock
	uuids   UuidGen
}

// Open opens (creating if necessary) a ChatDB backed by the SQLite file at
// path, running migrations and validating key's length against
// crypto/stream.KeyBytes.
func Open(path string, key []byte, clock Clock, uuids UuidGen) (*ChatDB, error) {
	b, err := openBackend(path)
	if err != nil {
		return nil, err
	}
	return newChatDB(b, key, clock, uuids)
}

// OpenInMemory is Open's in-memory counterpart, used by tests and
// ephemeral callers.
func OpenInMemory(key []byte, clock Clock, uuids UuidGen) (*ChatDB, error) {
	b, err := openInMemoryBackend()
	if err != nil {
		return nil, err
	}
	return newChatDB(b, key, clock, uuids)
}

func newChatDB(b *backend, key []byte, clock Clock, uuids UuidGen) (*ChatDB, error) {
	if len(key) != KeyBytes {
		return nil, fmt.Errorf("chatdb: %w: key must be %d bytes, got %d", errs.ErrBadLen, KeyBytes, len(key))
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if uuids == nil {
		uuids = RandomUuidGen{}
	}
	if err := b.withConn(runMigrations); err != nil {
		return nil, err
	}
	return &ChatDB{backend: b, key: key, clock: clock, uuids: uuids}, nil
}

// Close releases the underlying SQLite connection.
func (c *ChatDB) Close() error {
	return c.backend.close()
}

// CreateSession inserts a new, non-tombstoned session with needs_sync set,
// stamping created_at = updated_at from the clock.
func (c *ChatDB) CreateSession(title string) (Session, error) {
	id := c.uuids.NewUUID()
	now := c.clock.NowMicros()
	titleBlob, err := encryptBlobField([]byte(title), c.key)
	if err != nil {
		return Session{}, cryptoErrorf("encrypt session title", err)
	}

	err = c.backend.withConn(func(db *sql.DB) error {
		_, err := db.Exec(
			`INSERT INTO sessions (session_uuid, title, created_at, updated_at, needs_sync) VALUES (?, ?, ?, ?, 1)`,
			id.String(), titleBlob, now, now,
		)
		return err
	})
	if err != nil {
		return Session{}, dbErrorf("create session", err)
	}

	return Session{
		UUID:      id,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		NeedsSync: true,
	}, nil
}

// GetSession fetches a single non-tombstoned session, reporting
// errs.ErrNotFound if it is missing or tombstoned.
func (c *ChatDB) GetSession(id uuid.UUID) (Session, error) {
	var session Session
	err := c.backend.withConn(func(db *sql.DB) error {
		row := db.QueryRow(
			`SELECT session_uuid, title, created_at, updated_at, remote_id, needs_sync, deleted_at
			 FROM sessions WHERE session_uuid = ? AND deleted_at IS NULL`,
			id.String(),
		)
		s, err := c.sessionFromRow(row.Scan)
		if err != nil {
			return err
		}
		session = s
		return nil
	})
	if err == sql.ErrNoRows {
		return Session{}, notFoundf("session")
	}
	if err != nil {
		return Session{}, err
	}
	return session, nil
}

// ListSessions returns every non-tombstoned session, ordered by
// updated_at descending.
func (c *ChatDB) ListSessions() ([]Session, error) {
	var sessions []Session
	err := c.backend.withConn(func(db *sql.DB) error {
		rows, err := db.Query(
			`SELECT session_uuid, title, created_at, updated_at, remote_id, needs_sync, deleted_at
			 FROM sessions WHERE deleted_at IS NULL ORDER BY updated_at DESC`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			s, err := c.sessionFromRow(rows.Scan)
			if err != nil {
				return err
			}
			sessions = append(sessions, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, dbErrorf("list sessions", err)
	}
	return sessions, nil
}

// GetSessionsNeedingSync returns non-tombstoned sessions with needs_sync
// set, ordered by updated_at descending.
func (c *ChatDB) GetSessionsNeedingSync() ([]Session, error) {
	var sessions []Session
	err := c.backend.withConn(func(db *sql.DB) error {
		rows, err := db.Query(
			`SELECT session_uuid, title, created_at, updated_at, remote_id, needs_sync, deleted_at
			 FROM sessions WHERE needs_sync = 1 AND deleted_at IS NULL ORDER BY updated_at DESC`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			s, err := c.sessionFromRow(rows.Scan)
			if err != nil {
				return err
			}
			sessions = append(sessions, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, dbErrorf("list sessions needing sync", err)
	}
	return sessions, nil
}

// UpdateSessionTitle re-encrypts title and bumps updated_at/needs_sync.
// Returns errs.ErrNotFound if the session is missing or tombstoned.
func (c *ChatDB) UpdateSessionTitle(id uuid.UUID, title string) error {
	now := c.clock.NowMicros()
	titleBlob, err := encryptBlobField([]byte(title), c.key)
	if err != nil {
		return cryptoErrorf("encrypt session title", err)
	}

	return c.backend.withTxn(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`UPDATE sessions SET title = ?, updated_at = ?, needs_sync = 1
			 WHERE session_uuid = ? AND deleted_at IS NULL`,
			titleBlob, now, id.String(),
		)
		if err != nil {
			return dbErrorf("update session title", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return dbErrorf("update session title", err)
		}
		if rows == 0 {
			return notFoundf("session")
		}
		return nil
	})
}

// DeleteSession soft-deletes a session and, in the same transaction,
// tombstones all of its non-deleted messages.
func (c *ChatDB) DeleteSession(id uuid.UUID) error {
	now := c.clock.NowMicros()
	return c.backend.withTxn(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`UPDATE messages SET deleted_at = ? WHERE session_uuid = ? AND deleted_at IS NULL`,
			now, id.String(),
		); err != nil {
			return dbErrorf("tombstone session messages", err)
		}

		res, err := tx.Exec(
			`UPDATE sessions SET deleted_at = ?, needs_sync = 1 WHERE session_uuid = ? AND deleted_at IS NULL`,
			now, id.String(),
		)
		if err != nil {
			return dbErrorf("tombstone session", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return dbErrorf("tombstone session", err)
		}
		if rows == 0 {
			return notFoundf("session")
		}
		return nil
	})
}

// InsertMessage validates sender, encrypts text and attachment names, and
// inserts a new message, bumping the owning session's updated_at and
// needs_sync in the same transaction. parent is not validated to
// reference an existing message, so streaming senders may emit forward
// references.
func (c *ChatDB) InsertMessage(sessionUUID uuid.UUID, sender Sender, text string, parent *uuid.UUID, attachments []Attachment) (Message, error) {
	if _, err := ParseSender(string(sender)); err != nil {
		return Message{}, err
	}

	id := c.uuids.NewUUID()
	now := c.clock.NowMicros()
	textBlob, err := encryptBlobField([]byte(text), c.key)
	if err != nil {
		return Message{}, cryptoErrorf("encrypt message text", err)
	}
	attachmentsJSON, err := c.attachmentsToJSON(attachments)
	if err != nil {
		return Message{}, err
	}

	var parentStr any
	if parent != nil {
		parentStr = parent.String()
	}

	err = c.backend.withTxn(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`INSERT INTO messages (message_uuid, session_uuid, parent_message_uuid, sender, text, attachments, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id.String(), sessionUUID.String(), parentStr, string(sender), textBlob, attachmentsJSON, now,
		); err != nil {
			return err
		}
		_, err := tx.Exec(
			`UPDATE sessions SET updated_at = ?, needs_sync = 1 WHERE session_uuid = ? AND deleted_at IS NULL`,
			now, sessionUUID.String(),
		)
		return err
	})
	if err != nil {
		return Message{}, dbErrorf("insert message", err)
	}

	return Message{
		UUID:              id,
		SessionUUID:       sessionUUID,
		ParentMessageUUID: parent,
		Sender:            sender,
		Text:              text,
		Attachments:       attachments,
		CreatedAt:         now,
	}, nil
}

// GetMessages returns every non-tombstoned message of a session, ordered
// by (created_at, message_uuid) to break ties deterministically.
func (c *ChatDB) GetMessages(sessionUUID uuid.UUID) ([]Message, error) {
	var messages []Message
	err := c.backend.withConn(func(db *sql.DB) error {
		rows, err := db.Query(
			`SELECT message_uuid, session_uuid, parent_message_uuid, sender, text, attachments, created_at, deleted_at
			 FROM messages WHERE session_uuid = ? AND deleted_at IS NULL
			 ORDER BY created_at ASC, message_uuid ASC`,
			sessionUUID.String(),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			m, err := c.messageFromRow(rows.Scan)
			if err != nil {
				return err
			}
			messages = append(messages, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, dbErrorf("get messages", err)
	}
	return messages, nil
}

// UpdateMessageText re-encrypts a message's text and bumps its owning
// session's sync bookkeeping.
func (c *ChatDB) UpdateMessageText(id uuid.UUID, text string) error {
	now := c.clock.NowMicros()
	textBlob, err := encryptBlobField([]byte(text), c.key)
	if err != nil {
		return cryptoErrorf("encrypt message text", err)
	}

	return c.backend.withTxn(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`UPDATE messages SET text = ? WHERE message_uuid = ? AND deleted_at IS NULL`,
			textBlob, id.String(),
		)
		if err != nil {
			return dbErrorf("update message text", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return dbErrorf("update message text", err)
		}
		if rows == 0 {
			return notFoundf("message")
		}
		_, err = tx.Exec(
			`UPDATE sessions SET updated_at = ?, needs_sync = 1
			 WHERE session_uuid = (SELECT session_uuid FROM messages WHERE message_uuid = ?)`,
			now, id.String(),
		)
		if err != nil {
			return dbErrorf("bump session sync state", err)
		}
		return nil
	})
}

// DeleteMessage soft-deletes a single message without touching its
// session's deleted_at.
func (c *ChatDB) DeleteMessage(id uuid.UUID) error {
	now := c.clock.NowMicros()
	return c.backend.withTxn(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`UPDATE messages SET deleted_at = ? WHERE message_uuid = ? AND deleted_at IS NULL`,
			now, id.String(),
		)
		if err != nil {
			return dbErrorf("delete message", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return dbErrorf("delete message", err)
		}
		if rows == 0 {
			return notFoundf("message")
		}
		_, err = tx.Exec(
			`UPDATE sessions SET updated_at = ?, needs_sync = 1
			 WHERE session_uuid = (SELECT session_uuid FROM messages WHERE message_uuid = ?)`,
			now, id.String(),
		)
		if err != nil {
			return dbErrorf("bump session sync state", err)
		}
		return nil
	})
}

// MarkAttachmentUploaded is a transactional read-modify-write of a
// message's attachment JSON, idempotent on uploaded_at already being set.
func (c *ChatDB) MarkAttachmentUploaded(messageUUID uuid.UUID, attachmentID string) error {
	now := c.clock.NowMicros()
	return c.backend.withTxn(func(tx *sql.Tx) error {
		var raw sql.NullString
		err := tx.QueryRow(
			`SELECT attachments FROM messages WHERE message_uuid = ? AND deleted_at IS NULL`,
			messageUUID.String(),
		).Scan(&raw)
		if err == sql.ErrNoRows {
			return notFoundf("message")
		}
		if err != nil {
			return dbErrorf("mark attachment uploaded", err)
		}
		if !raw.Valid {
			return attachmentNotFoundf(attachmentID)
		}

		var items []attachmentJSON
		if err := json.Unmarshal([]byte(raw.String), &items); err != nil {
			return cryptoErrorf("decode attachments", fmt.Errorf("%w: %v", errs.ErrBadEncoding, err))
		}
		found := false
		for i := range items {
			if items[i].ID == attachmentID {
				items[i].UploadedAt = &now
				found = true
				break
			}
		}
		if !found {
			return attachmentNotFoundf(attachmentID)
		}

		var updated any
		if len(items) > 0 {
			encoded, err := json.Marshal(items)
			if err != nil {
				return cryptoErrorf("encode attachments", fmt.Errorf("%w: %v", errs.ErrBadParams, err))
			}
			updated = string(encoded)
		}
		if _, err := tx.Exec(`UPDATE messages SET attachments = ? WHERE message_uuid = ?`, updated, messageUUID.String()); err != nil {
			return dbErrorf("mark attachment uploaded", err)
		}
		return nil
	})
}

// GetPendingUploads enumerates attachments with uploaded_at IS NULL across
// non-deleted messages of a session, with names decrypted.
func (c *ChatDB) GetPendingUploads(sessionUUID uuid.UUID) ([]Attachment, error) {
	var pending []Attachment
	err := c.backend.withConn(func(db *sql.DB) error {
		rows, err := db.Query(
			`SELECT attachments FROM messages
			 WHERE session_uuid = ? AND deleted_at IS NULL AND attachments IS NOT NULL`,
			sessionUUID.String(),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				return err
			}
			var items []attachmentJSON
			if err := json.Unmarshal([]byte(raw), &items); err != nil {
				return fmt.Errorf("%w: %v", errs.ErrBadEncoding, err)
			}
			for _, item := range items {
				if item.UploadedAt != nil {
					continue
				}
				a, err := c.attachmentFromJSON(item)
				if err != nil {
					return err
				}
				pending = append(pending, a)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, dbErrorf("get pending uploads", err)
	}
	return pending, nil
}

// ListAttachmentIDs returns the union of attachment ids referenced by
// messages, optionally including tombstoned ones.
func (c *ChatDB) ListAttachmentIDs(includeDeleted bool) ([]string, error) {
	query := `SELECT attachments FROM messages WHERE deleted_at IS NULL AND attachments IS NOT NULL`
	if includeDeleted {
		query = `SELECT attachments FROM messages WHERE attachments IS NOT NULL`
	}

	seen := make(map[string]struct{})
	err := c.backend.withConn(func(db *sql.DB) error {
		rows, err := db.Query(query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				return err
			}
			var items []attachmentJSON
			if err := json.Unmarshal([]byte(raw), &items); err != nil {
				return fmt.Errorf("%w: %v", errs.ErrBadEncoding, err)
			}
			for _, item := range items {
				seen[item.ID] = struct{}{}
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, dbErrorf("list attachment ids", err)
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return ids, nil
}

// CleanupOrphanedAttachments deletes every id in store that is not
// referenced by the database, returning the ids removed.
func (c *ChatDB) CleanupOrphanedAttachments(store AttachmentStore, includeDeleted bool) ([]string, error) {
	referenced, err := c.ListAttachmentIDs(includeDeleted)
	if err != nil {
		return nil, err
	}
	referencedSet := make(map[string]struct{}, len(referenced))
	for _, id := range referenced {
		referencedSet[id] = struct{}{}
	}

	ids, err := store.ListIDs()
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, id := range ids {
		if _, ok := referencedSet[id]; ok {
			continue
		}
		if err := store.Delete(id); err != nil {
			return nil, err
		}
		removed = append(removed, id)
	}
	return removed, nil
}

// MarkSessionSynced records a remote id and clears needs_sync. Returns
// errs.ErrNotFound if the session is missing or tombstoned.
func (c *ChatDB) MarkSessionSynced(id uuid.UUID, remoteID string) error {
	return c.backend.withConn(func(db *sql.DB) error {
		res, err := db.Exec(
			`UPDATE sessions SET remote_id = ?, needs_sync = 0 WHERE session_uuid = ? AND deleted_at IS NULL`,
			remoteID, id.String(),
		)
		if err != nil {
			return dbErrorf("mark session synced", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return dbErrorf("mark session synced", err)
		}
		if rows == 0 {
			return notFoundf("session")
		}
		return nil
	})
}

// GetPendingDeletions lists (EntityType, uuid) pairs for tombstoned rows
// whose owning session had already been assigned a remote_id; these need
// a remote-side delete on next sync.
func (c *ChatDB) GetPendingDeletions() ([]PendingDeletion, error) {
	var pending []PendingDeletion
	err := c.backend.withConn(func(db *sql.DB) error {
		rows, err := db.Query(
			`SELECT session_uuid FROM sessions WHERE remote_id IS NOT NULL AND deleted_at IS NOT NULL`,
		)
		if err != nil {
			return err
		}
		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				rows.Close()
				return err
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				rows.Close()
				return fmt.Errorf("%w: %v", errs.ErrBadEncoding, err)
			}
			pending = append(pending, PendingDeletion{Kind: EntitySession, UUID: id})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		rows, err = db.Query(
			`SELECT message_uuid FROM messages
			 WHERE deleted_at IS NOT NULL
			   AND session_uuid IN (SELECT session_uuid FROM sessions WHERE remote_id IS NOT NULL)`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				return err
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("%w: %v", errs.ErrBadEncoding, err)
			}
			pending = append(pending, PendingDeletion{Kind: EntityMessage, UUID: id})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, dbErrorf("get pending deletions", err)
	}
	return pending, nil
}

// HardDelete purges a row unconditionally; a session hard delete cascades
// to its messages via the foreign key.
func (c *ChatDB) HardDelete(kind EntityType, id uuid.UUID) error {
	return c.backend.withConn(func(db *sql.DB) error {
		var res sql.Result
		var err error
		switch kind {
		case EntitySession:
			res, err = db.Exec(`DELETE FROM sessions WHERE session_uuid = ?`, id.String())
		case EntityMessage:
			res, err = db.Exec(`DELETE FROM messages WHERE message_uuid = ?`, id.String())
		default:
			return fmt.Errorf("chatdb: %w: unknown entity type %q", errs.ErrBadParams, kind)
		}
		if err != nil {
			return dbErrorf("hard delete", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return dbErrorf("hard delete", err)
		}
		if rows == 0 {
			return notFoundf(string(kind))
		}
		return nil
	})
}

type scanner func(dest ...any) error

func (c *ChatDB) sessionFromRow(scan scanner) (Session, error) {
	var (
		rawUUID   string
		titleBlob []byte
		createdAt int64
		updatedAt int64
		remoteID  sql.NullString
		needsSync int64
		deletedAt sql.NullInt64
	)
	if err := scan(&rawUUID, &titleBlob, &createdAt, &updatedAt, &remoteID, &needsSync, &deletedAt); err != nil {
		return Session{}, err
	}
	id, err := uuid.Parse(rawUUID)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", errs.ErrBadEncoding, err)
	}
	titlePlain, err := decryptBlobField(titleBlob, c.key)
	if err != nil {
		return Session{}, cryptoErrorf("decrypt session title", err)
	}

	session := Session{
		UUID:      id,
		Title:     string(titlePlain),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		NeedsSync: needsSync != 0,
	}
	if remoteID.Valid {
		v := remoteID.String
		session.RemoteID = &v
	}
	if deletedAt.Valid {
		v := deletedAt.Int64
		session.DeletedAt = &v
	}
	return session, nil
}

func (c *ChatDB) messageFromRow(scan scanner) (Message, error) {
	var (
		rawUUID       string
		rawSession    string
		rawParent     sql.NullString
		rawSender     string
		textBlob      []byte
		attachmentsJS sql.NullString
		createdAt     int64
		deletedAt     sql.NullInt64
	)
	if err := scan(&rawUUID, &rawSession, &rawParent, &rawSender, &textBlob, &attachmentsJS, &createdAt, &deletedAt); err != nil {
		return Message{}, err
	}

	id, err := uuid.Parse(rawUUID)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", errs.ErrBadEncoding, err)
	}
	sessionID, err := uuid.Parse(rawSession)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", errs.ErrBadEncoding, err)
	}
	var parent *uuid.UUID
	if rawParent.Valid {
		p, err := uuid.Parse(rawParent.String)
		if err != nil {
			return Message{}, fmt.Errorf("%w: %v", errs.ErrBadEncoding, err)
		}
		parent = &p
	}

	sender, err := ParseSender(rawSender)
	if err != nil {
		return Message{}, err
	}
	textPlain, err := decryptBlobField(textBlob, c.key)
	if err != nil {
		return Message{}, cryptoErrorf("decrypt message text", err)
	}

	var attachmentsRaw *string
	if attachmentsJS.Valid {
		attachmentsRaw = &attachmentsJS.String
	}
	attachments, err := c.attachmentsFromJSON(attachmentsRaw)
	if err != nil {
		return Message{}, err
	}

	message := Message{
		UUID:              id,
		SessionUUID:       sessionID,
		ParentMessageUUID: parent,
		Sender:            sender,
		Text:              string(textPlain),
		Attachments:       attachments,
		CreatedAt:         createdAt,
	}
	if deletedAt.Valid {
		v := deletedAt.Int64
		message.DeletedAt = &v
	}
	return message, nil
}

func (c *ChatDB) attachmentsFromJSON(raw *string) ([]Attachment, error) {
	if raw == nil {
		return nil, nil
	}
	var items []attachmentJSON
	if err := json.Unmarshal([]byte(*raw), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrBadEncoding, err)
	}
	out := make([]Attachment, 0, len(items))
	for _, item := range items {
		a, err := c.attachmentFromJSON(item)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *ChatDB) attachmentFromJSON(item attachmentJSON) (Attachment, error) {
	name, err := decryptName(item.EncryptedName, c.key)
	if err != nil {
		return Attachment{}, cryptoErrorf("decrypt attachment name", err)
	}
	return Attachment{
		ID:         item.ID,
		Kind:       item.Kind,
		Size:       item.Size,
		Name:       name,
		UploadedAt: item.UploadedAt,
	}, nil
}

func (c *ChatDB) attachmentsToJSON(attachments []Attachment) (any, error) {
	if len(attachments) == 0 {
		return nil, nil
	}
	items := make([]attachmentJSON, 0, len(attachments))
	for _, a := range attachments {
		encryptedName, err := encryptName(a.Name, c.key)
		if err != nil {
			return nil, cryptoErrorf("encrypt attachment name", err)
		}
		items = append(items, attachmentJSON{
			ID:            a.ID,
			Kind:          a.Kind,
			Size:          a.Size,
			EncryptedName: encryptedName,
			UploadedAt:    a.UploadedAt,
		})
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrBadParams, err)
	}
	return string(encoded), nil
}
