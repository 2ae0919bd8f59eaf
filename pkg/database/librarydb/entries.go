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
	"sort"
	"strings"
	"time"

	"github.com/GlanceProject/glance-core/pkg/library"
	"github.com/rs/zerolog/log"
)

// Timestamps are stored as epoch milliseconds to preserve the resolution
// OCR events arrive with.

func sqlLoadAllEntries(ctx context.Context, db *sql.DB) ([]library.Entry, error) {
	list := make([]library.Entry, 0)

	q, err := db.PrepareContext(ctx, `
		SELECT
			Path, Text, CreatedAt, UpdatedAt, Tags, URLs, Emails,
			CustomTags, Pinned
		FROM Entries
		ORDER BY CreatedAt DESC, Path ASC;
	`)
	if err != nil {
		return list, fmt.Errorf("failed to prepare entries query statement: %w", err)
	}
	defer func() {
		if closeErr := q.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return list, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close rows")
		}
	}()

	for rows.Next() {
		var entry library.Entry
		var createdAtMs, updatedAtMs int64
		var tags, urls, emails, customTags string
		var pinned int

		err = rows.Scan(
			&entry.Path,
			&entry.Text,
			&createdAtMs,
			&updatedAtMs,
			&tags,
			&urls,
			&emails,
			&customTags,
			&pinned,
		)
		if err != nil {
			return list, fmt.Errorf("failed to scan entry row: %w", err)
		}

		entry.CreatedAt = time.UnixMilli(createdAtMs)
		entry.UpdatedAt = time.UnixMilli(updatedAtMs)
		entry.Tags = decodeStringList(entry.Path, "Tags", tags)
		entry.URLs = decodeStringList(entry.Path, "URLs", urls)
		entry.Emails = decodeStringList(entry.Path, "Emails", emails)
		entry.CustomTags = decodeStringList(entry.Path, "CustomTags", customTags)
		entry.Pinned = pinned != 0

		list = append(list, entry)
	}
	if err := rows.Err(); err != nil {
		return list, fmt.Errorf("failed to iterate entry rows: %w", err)
	}

	return list, nil
}

func sqlUpsertEntry(ctx context.Context, db *sql.DB, entry *library.Entry) error {
	stmt, err := db.PrepareContext(ctx, `
		insert into Entries (
			Path, Text, CreatedAt, UpdatedAt, Tags, URLs, Emails,
			CustomTags, Pinned
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?)
		on conflict (Path) do update set
			Text = excluded.Text,
			UpdatedAt = excluded.UpdatedAt,
			Tags = excluded.Tags,
			URLs = excluded.URLs,
			Emails = excluded.Emails,
			CustomTags = excluded.CustomTags,
			Pinned = excluded.Pinned;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare entry upsert statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	updatedAt := entry.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = stmt.ExecContext(
		ctx,
		entry.Path,
		entry.Text,
		entry.CreatedAt.UnixMilli(),
		updatedAt.UnixMilli(),
		encodeStringList(entry.Tags),
		encodeStringList(entry.URLs),
		encodeStringList(entry.Emails),
		encodeStringList(entry.CustomTags),
		entry.Pinned,
	)
	if err != nil {
		return fmt.Errorf("failed to execute entry upsert: %w", err)
	}
	return nil
}

func sqlUpdateEntryPath(ctx context.Context, db *sql.DB, oldPath, newPath string) error {
	stmt, err := db.PrepareContext(ctx, `
		UPDATE Entries SET Path = ?, UpdatedAt = ? WHERE Path = ?;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare path update statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	_, err = stmt.ExecContext(ctx, newPath, time.Now().UnixMilli(), oldPath)
	if err != nil {
		return fmt.Errorf("failed to execute path update: %w", err)
	}
	return nil
}

func sqlUpdateEntryTags(ctx context.Context, db *sql.DB, path string, tags []string) error {
	stmt, err := db.PrepareContext(ctx, `
		UPDATE Entries SET Tags = ?, UpdatedAt = ? WHERE Path = ?;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare tags update statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	_, err = stmt.ExecContext(ctx, encodeStringList(tags), time.Now().UnixMilli(), path)
	if err != nil {
		return fmt.Errorf("failed to execute tags update: %w", err)
	}
	return nil
}

func sqlDeleteEntries(ctx context.Context, db *sql.DB, paths []string) (int64, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(paths)), ",")
	//nolint:gosec // placeholders are generated, values are bound
	query := "DELETE FROM Entries WHERE Path IN (" + placeholders + ");"

	args := make([]any, 0, len(paths))
	for _, p := range paths {
		args = append(args, p)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute entries delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

func sqlSetPinned(ctx context.Context, db *sql.DB, path string, pinned bool) error {
	stmt, err := db.PrepareContext(ctx, `
		UPDATE Entries SET Pinned = ?, UpdatedAt = ? WHERE Path = ?;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare pin update statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	_, err = stmt.ExecContext(ctx, pinned, time.Now().UnixMilli(), path)
	if err != nil {
		return fmt.Errorf("failed to execute pin update: %w", err)
	}
	return nil
}

func sqlSetCustomTags(ctx context.Context, db *sql.DB, path string, tags []string) error {
	stmt, err := db.PrepareContext(ctx, `
		UPDATE Entries SET CustomTags = ?, UpdatedAt = ? WHERE Path = ?;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare custom tags update statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	_, err = stmt.ExecContext(ctx, encodeStringList(tags), time.Now().UnixMilli(), path)
	if err != nil {
		return fmt.Errorf("failed to execute custom tags update: %w", err)
	}
	return nil
}

func sqlAllCustomTags(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT Path, CustomTags FROM Entries WHERE CustomTags != '[]';
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query custom tags: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close rows")
		}
	}()

	seen := make(map[string]bool)
	var tags []string
	for rows.Next() {
		var path, raw string
		if err := rows.Scan(&path, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan custom tags row: %w", err)
		}
		for _, tag := range decodeStringList(path, "CustomTags", raw) {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate custom tags rows: %w", err)
	}

	sort.Strings(tags)
	return tags, nil
}

func sqlCountEntries(ctx context.Context, db *sql.DB) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Entries;`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}
