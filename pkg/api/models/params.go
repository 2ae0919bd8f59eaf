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

package models

type SearchParams struct {
	MaxResults *int   `json:"maxResults" validate:"omitempty,min=1"`
	Query      string `json:"query"`
	Collection string `json:"collection"`
	PinnedOnly bool   `json:"pinnedOnly"`
}

type DeleteEntriesParams struct {
	Paths []string `json:"paths" validate:"required,min=1"`
}

type PinParams struct {
	Path string `json:"path" validate:"required"`
}

type CustomTagParams struct {
	Path string `json:"path" validate:"required"`
	Tag  string `json:"tag"  validate:"required"`
}

type SaveSearchParams struct {
	Name       string `json:"name" validate:"required"`
	Query      string `json:"query"`
	Collection string `json:"collection"`
}

type DeleteSearchParams struct {
	ID int64 `json:"id" validate:"required"`
}

// UpdateHashParams carries a perceptual hash computed by the external vision
// producer. Hash rides as base64 on the wire, which is what encoding/json
// does with byte slices anyway.
type UpdateHashParams struct {
	Path string `json:"path" validate:"required"`
	Hash []byte `json:"hash" validate:"required"`
}

type FindDuplicatesParams struct {
	Threshold *int `json:"threshold" validate:"omitempty,min=0,max=256"`
}

type ResolveDuplicatesParams struct {
	Groups   [][]string `json:"groups"   validate:"required,min=1"`
	Strategy string     `json:"strategy" validate:"required,oneof=keep-newest delete-all"`
}
