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

package database

import (
	"database/sql"
	"time"

	"github.com/GlanceProject/glance-core/pkg/library"
)

/*
 * Non-concrete interfaces live at this generic package level so callers
 * don't bind to a concrete store. The implementation is in librarydb.
 */

// Database bundles the stores the service binds into its environment.
type Database struct {
	Library LibraryDBI
}

/*
 * Structs for SQL records
 */

type SavedSearch struct {
	CreatedAt  time.Time `json:"createdAt"`
	Name       string    `json:"name"`
	Query      string    `json:"query"`
	Collection string    `json:"collection"`
	DBID       int64     `json:"id"`
}

type PerceptualHash struct {
	Path string
	Hash []byte
}

/*
 * Interfaces for external deps
 */

type GenericDBI interface {
	Open() error
	UnsafeGetSQLDb() *sql.DB
	Truncate() error
	Allocate() error
	MigrateUp() error
	Vacuum() error
	Close() error
	GetDBPath() string
}

type LibraryDBI interface {
	GenericDBI

	LoadAllEntries() ([]library.Entry, error)
	UpsertEntry(entry *library.Entry) error
	UpdateEntryPath(oldPath, newPath string) error
	UpdateEntryTags(path string, tags []string) error
	DeleteEntries(paths []string) (int64, error)
	SetPinned(path string, pinned bool) error
	SetCustomTags(path string, tags []string) error
	AllCustomTags() ([]string, error)
	CountEntries() (int, error)

	SaveSavedSearch(search *SavedSearch) error
	DeleteSavedSearch(id int64) error
	AllSavedSearches() ([]SavedSearch, error)

	UpdatePerceptualHash(path string, hash []byte) error
	AllPerceptualHashes() ([]PerceptualHash, error)
}
