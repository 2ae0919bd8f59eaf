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

package similarity

import (
	"fmt"

	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/GlanceProject/glance-core/pkg/files"
	"github.com/GlanceProject/glance-core/pkg/library"
	"github.com/rs/zerolog/log"
)

// Resolution strategies for duplicate groups.
const (
	StrategyKeepNewest = "keep-newest"
	StrategyDeleteAll  = "delete-all"
)

type GroupResult struct {
	Failed  map[string]string `json:"failed,omitempty"`
	Kept    string            `json:"kept,omitempty"`
	Deleted []string          `json:"deleted"`
}

type Summary struct {
	Groups       []GroupResult `json:"groups"`
	DeletedCount int           `json:"deletedCount"`
	FailedCount  int           `json:"failedCount"`
}

// Resolver applies a resolution strategy to duplicate groups. Groups fail
// independently: a file that cannot be deleted in one group never blocks
// the remaining groups.
type Resolver struct {
	cfg *config.Instance
}

func NewResolver(cfg *config.Instance) *Resolver {
	return &Resolver{cfg: cfg}
}

// Resolve deletes files per strategy and reports what happened per group.
// Groups with fewer than two entries are skipped. The returned error only
// flags an unknown strategy, never a file failure.
func (r *Resolver) Resolve(groups [][]library.Entry, strategy string) (Summary, error) {
	if strategy != StrategyKeepNewest && strategy != StrategyDeleteAll {
		return Summary{}, fmt.Errorf("unknown resolution strategy: %q", strategy)
	}

	summary := Summary{Groups: make([]GroupResult, 0, len(groups))}
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}

		result := GroupResult{}
		victims := make([]string, 0, len(group))
		switch strategy {
		case StrategyKeepNewest:
			keep := newestIndex(group)
			result.Kept = group[keep].Path
			for i, entry := range group {
				if i != keep {
					victims = append(victims, entry.Path)
				}
			}
		case StrategyDeleteAll:
			for _, entry := range group {
				victims = append(victims, entry.Path)
			}
		}

		outcome := files.DeleteFiles(r.cfg, victims)
		result.Deleted = outcome.Deleted
		if len(outcome.Failed) > 0 {
			result.Failed = outcome.Failed
			summary.FailedCount++
			log.Warn().
				Int("failures", len(outcome.Failed)).
				Str("strategy", strategy).
				Msg("duplicate group partially resolved")
		}
		summary.DeletedCount += len(outcome.Deleted)
		summary.Groups = append(summary.Groups, result)
	}

	return summary, nil
}

// EstimateSavings returns the bytes that keep-newest resolution would free
// across all groups. Files that cannot be statted count as zero.
func (r *Resolver) EstimateSavings(groups [][]library.Entry) int64 {
	var total int64
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		keep := newestIndex(group)
		for i, entry := range group {
			if i == keep {
				continue
			}
			meta, err := files.GetMetadata(entry.Path)
			if err != nil {
				log.Debug().Str("path", entry.Path).Msg("skipping unreadable file in savings estimate")
				continue
			}
			total += meta.SizeBytes
		}
	}
	return total
}

// newestIndex picks the entry with the latest creation time, keeping the
// first on ties.
func newestIndex(group []library.Entry) int {
	newest := 0
	for i := 1; i < len(group); i++ {
		if group[i].CreatedAt.After(group[newest].CreatedAt) {
			newest = i
		}
	}
	return newest
}
