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

package methods

import (
	"errors"

	"github.com/GlanceProject/glance-core/pkg/api/models"
	"github.com/GlanceProject/glance-core/pkg/api/models/requests"
	"github.com/GlanceProject/glance-core/pkg/api/validation"
	"github.com/GlanceProject/glance-core/pkg/library"
	"github.com/GlanceProject/glance-core/pkg/similarity"
	"github.com/rs/zerolog/log"
)

// entryIndex maps canonical path keys to their in-memory entries. Hash rows
// and client-submitted groups both reference entries by path, and either
// can mention paths the library no longer holds.
func entryIndex(entries []library.Entry) map[string]library.Entry {
	index := make(map[string]library.Entry, len(entries))
	for i := range entries {
		index[library.PathKey(entries[i].Path)] = entries[i]
	}
	return index
}

func HandleFindDuplicates(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received find duplicates request")

	var params models.FindDuplicatesParams
	if len(env.Params) > 0 {
		if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
			return nil, err
		}
	}

	threshold := env.Config.SimilarityThreshold()
	if params.Threshold != nil {
		threshold = *params.Threshold
	}

	hashes, err := env.Database.Library.AllPerceptualHashes()
	if err != nil {
		log.Error().Err(err).Msg("error loading perceptual hashes")
		return nil, errors.New("error loading perceptual hashes")
	}

	index := entryIndex(env.State.Entries())
	resolver := similarity.NewResolver(env.Config)

	resp := models.FindDuplicatesResponse{
		Groups:    make([]models.DuplicateGroup, 0),
		Threshold: threshold,
	}
	for _, paths := range similarity.GroupSimilar(hashes, threshold) {
		group := make([]library.Entry, 0, len(paths))
		for _, path := range paths {
			if entry, ok := index[library.PathKey(path)]; ok {
				group = append(group, entry)
			}
		}
		// The store can briefly know paths the in-memory library has
		// already dropped.
		if len(group) < 2 {
			continue
		}

		dup := models.DuplicateGroup{
			Paths:        make([]string, 0, len(group)),
			SavingsBytes: resolver.EstimateSavings([][]library.Entry{group}),
		}
		for i := range group {
			dup.Paths = append(dup.Paths, group[i].Path)
		}
		resp.Groups = append(resp.Groups, dup)
	}

	log.Info().Int("groups", len(resp.Groups)).Int("threshold", threshold).Msg("duplicate scan finished")
	return resp, nil
}

// HandleResolveDuplicates deletes files per the requested strategy. The
// resolver only touches the disk; the deleted paths are then pruned from
// the library through the reconciler, which notifies subscribers and lets
// the watcher recognize the deletions as its own.
func HandleResolveDuplicates(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received resolve duplicates request")

	var params models.ResolveDuplicatesParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	index := entryIndex(env.State.Entries())
	groups := make([][]library.Entry, 0, len(params.Groups))
	for _, paths := range params.Groups {
		group := make([]library.Entry, 0, len(paths))
		for _, path := range paths {
			entry, ok := index[library.PathKey(path)]
			if !ok {
				log.Debug().Str("path", path).Msg("skipping unknown path in duplicate group")
				continue
			}
			group = append(group, entry)
		}
		groups = append(groups, group)
	}

	summary, err := similarity.NewResolver(env.Config).Resolve(groups, params.Strategy)
	if err != nil {
		return nil, err
	}

	var deleted []string
	for i := range summary.Groups {
		deleted = append(deleted, summary.Groups[i].Deleted...)
	}
	env.Reconciler.RemoveMissing(deleted)

	log.Info().
		Int("deleted", summary.DeletedCount).
		Int("failedGroups", summary.FailedCount).
		Str("strategy", params.Strategy).
		Msg("resolved duplicate groups")
	return summary, nil
}
