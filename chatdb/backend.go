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
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ente-x/cryptocore/internal/errs"
	"github.com/ente-x/cryptocore/internal/metrics"
)

// backend holds the single SQLite connection every ChatDB operation runs
// against, behind a mutex: reads and writes are both serialized.
// There is deliberately no connection pool; a second concurrent caller
// blocks rather than racing a second file handle against the same
// database file.
type backend struct {
	mu sync.Mutex
	db *sql.DB
}

// openBackend opens (creating if absent) the SQLite file at path.
func openBackend(path string) (*backend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("chatdb: %w: open %s: %v", errs.ErrDB, path, err)
	}
	db.SetMaxOpenConns(1)
	return &backend{db: db}, nil
}

// openInMemoryBackend opens a private, non-shared in-memory database, used
// by tests and by callers that want a scratch store with no on-disk trace.
func openInMemoryBackend() (*backend, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("chatdb: %w: open in-memory db: %v", errs.ErrDB, err)
	}
	db.SetMaxOpenConns(1)
	return &backend{db: db}, nil
}

func (b *backend) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.db.Close()
}

// withConn runs f against the shared connection under the backend's lock.
// f may issue any number of statements; nothing here is transactional.
func (b *backend) withConn(f func(*sql.DB) error) (err error) {
	start := time.Now()
	defer func() {
		metrics.GetGlobalCollector().RecordChatDBQuery(err == nil, time.Since(start))
		if err != nil {
			metrics.CryptoErrors.WithLabelValues("chatdb_query").Inc()
		}
	}()

	b.mu.Lock()
	defer b.mu.Unlock()
	return f(b.db)
}

// withTxn runs f inside a transaction under the backend's lock, committing
// on a nil return and rolling back otherwise.
func (b *backend) withTxn(f func(*sql.Tx) error) (err error) {
	start := time.Now()
	defer func() {
		metrics.GetGlobalCollector().RecordChatDBQuery(err == nil, time.Since(start))
		if err != nil {
			metrics.CryptoErrors.WithLabelValues("chatdb_query").Inc()
		}
	}()

	b.mu.Lock()
	defer b.mu.Unlock()

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("chatdb: %w: begin transaction: %v", errs.ErrDB, err)
	}
	if err := f(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("chatdb: %w: commit transaction: %v", errs.ErrDB, err)
	}
	return nil
}
