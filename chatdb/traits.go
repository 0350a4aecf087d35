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
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ente-x/cryptocore/internal/errs"
)

// Clock supplies the monotonic microsecond timestamps ChatDB stamps onto
// rows. Tests substitute a deterministic implementation to make ordering
// and "strictly greater than before" assertions exact.
type Clock interface {
	NowMicros() int64
}

// SystemClock is the default Clock, backed by the wall clock.
type SystemClock struct{}

func (SystemClock) NowMicros() int64 {
	return time.Now().UnixMicro()
}

// UuidGen supplies the identifiers ChatDB assigns to new sessions and
// messages. Tests substitute a queue of fixed values for reproducibility.
type UuidGen interface {
	NewUUID() uuid.UUID
}

// RandomUuidGen is the default UuidGen, backed by v4 (random) UUIDs.
type RandomUuidGen struct{}

func (RandomUuidGen) NewUUID() uuid.UUID {
	return uuid.New()
}

// MetaStore is an opaque key/value byte store higher layers use for things
// like device-local key material; ChatDB itself never reads or writes
// through it, it only threads it to callers that need one alongside a
// ChatDB instance.
type MetaStore interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// FileMetaStore is the default MetaStore: one file per key, named by the
// hex encoding of the key so arbitrary key strings are always valid
// filenames, rooted at a caller-provided directory.
type FileMetaStore struct {
	root string
}

// NewFileMetaStore roots a FileMetaStore at dir, creating it if needed.
func NewFileMetaStore(dir string) (*FileMetaStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("chatdb: %w: %v", errs.ErrIO, err)
	}
	return &FileMetaStore{root: dir}, nil
}

func (s *FileMetaStore) path(key string) string {
	return filepath.Join(s.root, hex.EncodeToString([]byte(key)))
}

func (s *FileMetaStore) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("chatdb: %w: %v", errs.ErrIO, err)
	}
	return data, true, nil
}

func (s *FileMetaStore) Set(key string, value []byte) error {
	if err := os.WriteFile(s.path(key), value, 0o600); err != nil {
		return fmt.Errorf("chatdb: %w: %v", errs.ErrIO, err)
	}
	return nil
}

func (s *FileMetaStore) Delete(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("chatdb: %w: %v", errs.ErrIO, err)
	}
	return nil
}

// AttachmentStore is an id -> bytes store for out-of-line attachment
// content. ChatDB only reconciles against it (CleanupOrphanedAttachments);
// it never reads or writes attachment bytes itself.
type AttachmentStore interface {
	Write(id string, data []byte) error
	Read(id string) ([]byte, error)
	Delete(id string) error
	Exists(id string) (bool, error)
	ListIDs() ([]string, error)
}

// FsAttachmentStore is the default AttachmentStore, storing each attachment
// as a single file named by its raw id under a "chat_attachments"
// subdirectory of a caller-provided root.
type FsAttachmentStore struct {
	dir string
}

// NewFsAttachmentStore roots an FsAttachmentStore at
// filepath.Join(root, "chat_attachments"), creating it if needed.
func NewFsAttachmentStore(root string) (*FsAttachmentStore, error) {
	dir := filepath.Join(root, "chat_attachments")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("chatdb: %w: %v", errs.ErrIO, err)
	}
	return &FsAttachmentStore{dir: dir}, nil
}

func (s *FsAttachmentStore) path(id string) string {
	return filepath.Join(s.dir, id)
}

func (s *FsAttachmentStore) Write(id string, data []byte) error {
	if err := os.WriteFile(s.path(id), data, 0o600); err != nil {
		return fmt.Errorf("chatdb: %w: %v", errs.ErrIO, err)
	}
	return nil
}

func (s *FsAttachmentStore) Read(id string) ([]byte, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, attachmentNotFoundf(id)
		}
		return nil, fmt.Errorf("chatdb: %w: %v", errs.ErrIO, err)
	}
	return data, nil
}

func (s *FsAttachmentStore) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("chatdb: %w: %v", errs.ErrIO, err)
	}
	return nil
}

func (s *FsAttachmentStore) Exists(id string) (bool, error) {
	_, err := os.Stat(s.path(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("chatdb: %w: %v", errs.ErrIO, err)
}

func (s *FsAttachmentStore) ListIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("chatdb: %w: %v", errs.ErrIO, err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ids = append(ids, e.Name())
	}
	return ids, nil
}
