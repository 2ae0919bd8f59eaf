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

import (
	"time"

	"github.com/GlanceProject/glance-core/pkg/database"
	"github.com/GlanceProject/glance-core/pkg/library"
)

// EntryInfo is the wire shape of one library entry.
type EntryInfo struct {
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Path       string    `json:"path"`
	Text       string    `json:"text"`
	Tags       []string  `json:"tags"`
	URLs       []string  `json:"urls"`
	Emails     []string  `json:"emails"`
	CustomTags []string  `json:"customTags"`
	Pinned     bool      `json:"pinned"`
}

func NewEntryInfo(e *library.Entry) EntryInfo {
	return EntryInfo{
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
		Path:       e.Path,
		Text:       e.Text,
		Tags:       e.Tags,
		URLs:       e.URLs,
		Emails:     e.Emails,
		CustomTags: e.CustomTags,
		Pinned:     e.Pinned,
	}
}

type SearchResultGroup struct {
	Label   string      `json:"label"`
	Entries []EntryInfo `json:"entries"`
}

// SearchResults carries date-grouped matches plus the flat path ordering
// clients use for next/previous navigation.
type SearchResults struct {
	Groups   []SearchResultGroup `json:"groups"`
	Ordering []string            `json:"ordering"`
	Total    int                 `json:"total"`
}

type EntriesResponse struct {
	Entries []EntryInfo `json:"entries"`
	Total   int         `json:"total"`
}

type DeleteEntriesResponse struct {
	Failed  map[string]string `json:"failed,omitempty"`
	Deleted []string          `json:"deleted"`
}

type PinResponse struct {
	Path   string `json:"path"`
	Pinned bool   `json:"pinned"`
}

type CustomTagsResponse struct {
	Tags []string `json:"tags"`
}

type ReclassifyResponse struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
}

type SearchesResponse struct {
	Searches []database.SavedSearch `json:"searches"`
}

type DuplicateGroup struct {
	Paths        []string `json:"paths"`
	SavingsBytes int64    `json:"savingsBytes"`
}

type FindDuplicatesResponse struct {
	Groups    []DuplicateGroup `json:"groups"`
	Threshold int              `json:"threshold"`
}

type WatchDirUsage struct {
	Path       string `json:"path"`
	FreeBytes  uint64 `json:"freeBytes"`
	TotalBytes uint64 `json:"totalBytes"`
}

type StatsResponse struct {
	TagCounts   map[string]int  `json:"tagCounts"`
	WatchDirs   []WatchDirUsage `json:"watchDirs"`
	Entries     int             `json:"entries"`
	Pinned      int             `json:"pinned"`
	DBSizeBytes int64           `json:"dbSizeBytes"`
}

type VersionResponse struct {
	Version  string `json:"version"`
	Platform string `json:"platform"`
}

/*
 * Notification payloads
 */

type IndexedParams struct {
	Entry EntryInfo `json:"entry"`
}

type RemovedParams struct {
	Paths []string `json:"paths"`
}

// StatusParams reports transient reconciliation status: a processing file,
// a surfaced error, or the return to idle.
type StatusParams struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
	Error  string `json:"error,omitempty"`
}

type BatchParams struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Percent    float64 `json:"percent"`
	EtaSeconds int     `json:"etaSeconds"`
	InProgress bool    `json:"inProgress"`
}

type DetectedParams struct {
	Path string `json:"path"`
}
