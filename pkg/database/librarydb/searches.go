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

package librarydb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/GlanceProject/glance-core/pkg/database"
	"github.com/rs/zerolog/log"
)

// Saved searches are keyed by name on write: saving an existing name
// overwrites its query and collection instead of creating a second row.
// Deletes go by row id, which is what clients hold after a list call.

func sqlSaveSavedSearch(ctx context.Context, db *sql.DB, search *database.SavedSearch) error {
	stmt, err := db.PrepareContext(ctx, `
		insert into SavedSearches (Name, Query, Collection, CreatedAt)
		values (?, ?, ?, ?)
		on conflict (Name) do update set
			Query      = excluded.Query,
			Collection = excluded.Collection;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare saved search insert statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	createdAt := search.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := stmt.ExecContext(ctx, search.Name, search.Query, search.Collection, createdAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to execute saved search insert: %w", err)
	}
	if id, idErr := result.LastInsertId(); idErr == nil {
		search.DBID = id
	}
	return nil
}

func sqlDeleteSavedSearch(ctx context.Context, db *sql.DB, id int64) error {
	stmt, err := db.PrepareContext(ctx, `DELETE FROM SavedSearches WHERE DBID = ?;`)
	if err != nil {
		return fmt.Errorf("failed to prepare saved search delete statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	_, err = stmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to execute saved search delete: %w", err)
	}
	return nil
}

func sqlAllSavedSearches(ctx context.Context, db *sql.DB) ([]database.SavedSearch, error) {
	list := make([]database.SavedSearch, 0)

	rows, err := db.QueryContext(ctx, `
		SELECT DBID, Name, Query, Collection, CreatedAt
		FROM SavedSearches
		ORDER BY Name ASC;
	`)
	if err != nil {
		return list, fmt.Errorf("failed to query saved searches: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close rows")
		}
	}()

	for rows.Next() {
		var search database.SavedSearch
		var createdAtMs int64
		if err := rows.Scan(&search.DBID, &search.Name, &search.Query, &search.Collection, &createdAtMs); err != nil {
			return list, fmt.Errorf("failed to scan saved search row: %w", err)
		}
		search.CreatedAt = time.UnixMilli(createdAtMs)
		list = append(list, search)
	}
	if err := rows.Err(); err != nil {
		return list, fmt.Errorf("failed to iterate saved search rows: %w", err)
	}

	return list, nil
}
