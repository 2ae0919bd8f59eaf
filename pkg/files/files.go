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

// Package files wraps the OS-level file operations the service performs on
// screenshots: metadata lookup and deletion.
package files

import (
	"fmt"
	"os"
	"time"
)

type Metadata struct {
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"sizeBytes"`
}

// GetMetadata stats a file and returns its size and timestamps. CreatedAt
// is the filesystem birth time where the platform exposes one, otherwise
// the modification time.
func GetMetadata(path string) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to stat file: %w", err)
	}

	created, ok := birthTime(path)
	if !ok {
		created = info.ModTime()
	}

	return Metadata{
		Path:       path,
		SizeBytes:  info.Size(),
		CreatedAt:  created,
		ModifiedAt: info.ModTime(),
	}, nil
}
