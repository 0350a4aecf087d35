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

// Package chatdb is an encrypted, local SQLite chat datastore: sessions and
// messages, with soft-delete tombstones and sync bookkeeping for a client
// that mirrors its local state to a remote service. Every user-visible text
// field is stored as a crypto/blob ciphertext under a single caller-supplied
// key; nothing plaintext ever reaches disk through this package.
package chatdb

import "github.com/google/uuid"

// Sender identifies who authored a chat message. Only the two enumerated
// values are ever valid; anything else read back from storage is corruption.
type Sender string

const (
	SenderSelf  Sender = "self"
	SenderOther Sender = "other"
)

// ParseSender validates a raw sender string, surfacing anything outside
// {"self", "other"} as-is so callers can report exactly what was found.
func ParseSender(s string) (Sender, error) {
	switch Sender(s) {
	case SenderSelf, SenderOther:
		return Sender(s), nil
	default:
		return "", &invalidSenderError{value: s}
	}
}

// EntityType names one of the two kinds of row a sync cursor or hard delete
// can operate on.
type EntityType string

const (
	EntitySession EntityType = "session"
	EntityMessage EntityType = "message"
)

// Session is a conversation container. Title is decrypted on read.
type Session struct {
	UUID      uuid.UUID
	Title     string
	CreatedAt int64
	UpdatedAt int64
	RemoteID  *string
	NeedsSync bool
	DeletedAt *int64
}

// Message is one turn of a Session. Text is decrypted on read; Attachments
// are decrypted (their names, specifically) on read.
type Message struct {
	UUID              uuid.UUID
	SessionUUID       uuid.UUID
	ParentMessageUUID *uuid.UUID
	Sender            Sender
	Text              string
	Attachments       []Attachment
	CreatedAt         int64
	DeletedAt         *int64
}

// Attachment is a reference to out-of-line binary content (an image, a
// file) associated with a Message. Name is plaintext in memory; at rest it
// is stored encrypted inside the message's attachments JSON blob.
type Attachment struct {
	ID         string
	Kind       string
	Size       uint64
	Name       string
	UploadedAt *int64
}

// PendingDeletion names a tombstoned row that still needs a remote-side
// delete on next sync, because a prior sync had already assigned it a
// remote id.
type PendingDeletion struct {
	Kind EntityType
	UUID uuid.UUID
}

// attachmentJSON is the on-disk representation of an Attachment: the name
// is encrypted (see crypto.go's encryptName/decryptName), everything else
// is plaintext metadata.
type attachmentJSON struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Size          uint64 `json:"size"`
	EncryptedName string `json:"encrypted_name"`
	UploadedAt    *int64 `json:"uploaded_at,omitempty"`
}
