// Glance Core
// Copyright (c) 2025 The Glance Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Glance Core.
//
// Glance Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Glance Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Glance Core.  If not, see <http://www.gnu.org/licenses/>.

// Package librarydb persists the canonical entry set, saved searches and
// perceptual hashes in a local SQLite database. The reconciler owns the
// in-memory canonical state; this store mirrors it across restarts.
package librarydb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/GlanceProject/glance-core/pkg/database"
	"github.com/GlanceProject/glance-core/pkg/helpers"
	"github.com/GlanceProject/glance-core/pkg/library"
	_ "github.com/mattn/go-sqlite3"
)

var ErrNullSQL = errors.New("LibraryDB is not connected")

const sqliteConnParams = "?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000"

type LibraryDB struct {
	sql *sql.DB
	ctx context.Context
}

func OpenLibraryDB(ctx context.Context) (*LibraryDB, error) {
	db := &LibraryDB{sql: nil, ctx: ctx}
	err := db.Open()
	return db, err
}

func (db *LibraryDB) Open() error {
	exists := true
	dbPath := db.GetDBPath()
	_, err := os.Stat(dbPath)
	if err != nil {
		exists = false
		mkdirErr := os.MkdirAll(filepath.Dir(dbPath), 0o750)
		if mkdirErr != nil {
			return fmt.Errorf("failed to create directory for database: %w", mkdirErr)
		}
	}
	sqlInstance, err := sql.Open("sqlite3", dbPath+sqliteConnParams)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.sql = sqlInstance
	if !exists {
		return db.Allocate()
	}
	return nil
}

func (db *LibraryDB) GetDBPath() string {
	return filepath.Join(helpers.DataDir(), config.LibraryDBFile)
}

func (db *LibraryDB) UnsafeGetSQLDb() *sql.DB {
	return db.sql
}

func (db *LibraryDB) Truncate() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlTruncate(db.ctx, db.sql)
}

func (db *LibraryDB) Allocate() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlAllocate(db.sql)
}

func (db *LibraryDB) MigrateUp() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlMigrateUp(db.sql)
}

func (db *LibraryDB) Vacuum() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlVacuum(db.ctx, db.sql)
}

func (db *LibraryDB) Close() error {
	if db.sql == nil {
		return nil
	}
	err := db.sql.Close()
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// SetSQLForTesting allows injection of a sql.DB instance for testing
// purposes. It should only be used by tests to set up in-memory or mocked
// databases.
func (db *LibraryDB) SetSQLForTesting(ctx context.Context, sqlDB *sql.DB) error {
	db.sql = sqlDB
	db.ctx = ctx
	return nil
}

/*
 * Entry operations. Public methods guard the connection and delegate to
 * the sql functions in entries.go.
 */

func (db *LibraryDB) LoadAllEntries() ([]library.Entry, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlLoadAllEntries(db.ctx, db.sql)
}

func (db *LibraryDB) UpsertEntry(entry *library.Entry) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlUpsertEntry(db.ctx, db.sql, entry)
}

func (db *LibraryDB) UpdateEntryPath(oldPath, newPath string) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlUpdateEntryPath(db.ctx, db.sql, oldPath, newPath)
}

func (db *LibraryDB) UpdateEntryTags(path string, tags []string) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlUpdateEntryTags(db.ctx, db.sql, path, tags)
}

func (db *LibraryDB) DeleteEntries(paths []string) (int64, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	return sqlDeleteEntries(db.ctx, db.sql, paths)
}

func (db *LibraryDB) SetPinned(path string, pinned bool) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlSetPinned(db.ctx, db.sql, path, pinned)
}

func (db *LibraryDB) SetCustomTags(path string, tags []string) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlSetCustomTags(db.ctx, db.sql, path, tags)
}

func (db *LibraryDB) AllCustomTags() ([]string, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlAllCustomTags(db.ctx, db.sql)
}

func (db *LibraryDB) CountEntries() (int, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	return sqlCountEntries(db.ctx, db.sql)
}

/*
 * Saved searches.
 */

func (db *LibraryDB) SaveSavedSearch(search *database.SavedSearch) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlSaveSavedSearch(db.ctx, db.sql, search)
}

func (db *LibraryDB) DeleteSavedSearch(id int64) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlDeleteSavedSearch(db.ctx, db.sql, id)
}

func (db *LibraryDB) AllSavedSearches() ([]database.SavedSearch, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlAllSavedSearches(db.ctx, db.sql)
}

/*
 * Perceptual hashes.
 */

func (db *LibraryDB) UpdatePerceptualHash(path string, hash []byte) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlUpdatePerceptualHash(db.ctx, db.sql, path, hash)
}

func (db *LibraryDB) AllPerceptualHashes() ([]database.PerceptualHash, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlAllPerceptualHashes(db.ctx, db.sql)
}
