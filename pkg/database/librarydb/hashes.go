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

	"github.com/GlanceProject/glance-core/pkg/database"
	"github.com/rs/zerolog/log"
)

// Perceptual hashes are computed by the capture pipeline and submitted over
// the API; the store only keeps them alongside their entry.

func sqlUpdatePerceptualHash(ctx context.Context, db *sql.DB, path string, hash []byte) error {
	stmt, err := db.PrepareContext(ctx, `
		UPDATE Entries SET PerceptualHash = ? WHERE Path = ?;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare hash update statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	_, err = stmt.ExecContext(ctx, hash, path)
	if err != nil {
		return fmt.Errorf("failed to execute hash update: %w", err)
	}
	return nil
}

func sqlAllPerceptualHashes(ctx context.Context, db *sql.DB) ([]database.PerceptualHash, error) {
	list := make([]database.PerceptualHash, 0)

	rows, err := db.QueryContext(ctx, `
		SELECT Path, PerceptualHash
		FROM Entries
		WHERE PerceptualHash IS NOT NULL;
	`)
	if err != nil {
		return list, fmt.Errorf("failed to query perceptual hashes: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close rows")
		}
	}()

	for rows.Next() {
		var ph database.PerceptualHash
		if err := rows.Scan(&ph.Path, &ph.Hash); err != nil {
			return list, fmt.Errorf("failed to scan perceptual hash row: %w", err)
		}
		list = append(list, ph)
	}
	if err := rows.Err(); err != nil {
		return list, fmt.Errorf("failed to iterate perceptual hash rows: %w", err)
	}

	return list, nil
}
