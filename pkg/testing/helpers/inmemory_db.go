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

package helpers

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/GlanceProject/glance-core/pkg/database"
	"github.com/GlanceProject/glance-core/pkg/database/librarydb"
	_ "github.com/mattn/go-sqlite3"
)

// NewInMemoryLibraryDB opens a real SQLite library database in a temp
// directory and runs migrations against it. A temp file rather than
// :memory: so the schema survives connection pool churn.
func NewInMemoryLibraryDB(t *testing.T) (db *librarydb.LibraryDB, cleanup func()) {
	t.Helper()

	ctx := context.Background()
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "librarydb_test.db")

	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	db = &librarydb.LibraryDB{}
	err = db.SetSQLForTesting(ctx, sqlDB)
	if err != nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			t.Errorf("Failed to close SQL database after setup error: %v", closeErr)
		}
		t.Fatalf("Failed to set up LibraryDB for testing: %v", err)
	}

	// SetSQLForTesting only injects the handle; the schema still has to be
	// created the same way Open does on first boot.
	if err := db.MigrateUp(); err != nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			t.Errorf("Failed to close SQL database after setup error: %v", closeErr)
		}
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	cleanup = func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close LibraryDB: %v", err)
		}
	}

	return db, cleanup
}

// NewTestDatabase wraps an in-memory library store in the Database bundle
// handlers and the reconciler take. Cleanup should be deferred.
func NewTestDatabase(t *testing.T) (db *database.Database, cleanup func()) {
	t.Helper()

	libraryDB, libraryCleanup := NewInMemoryLibraryDB(t)

	db = &database.Database{
		Library: libraryDB,
	}

	return db, libraryCleanup
}
