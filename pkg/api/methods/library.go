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
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const defaultMaxResults = 250

// NoContent marks a mutation as applied with nothing further to report.
// The server sends it as a bare success result.
type NoContent struct{}

func HandleSearch(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received search request")

	var params models.SearchParams
	if len(env.Params) > 0 {
		if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
			return nil, err
		}
	}

	maxResults := defaultMaxResults
	if params.MaxResults != nil && *params.MaxResults > 0 {
		maxResults = *params.MaxResults
	}

	matched := library.RunQuery(env.State.Entries(), library.Query{
		Text:       params.Query,
		Collection: params.Collection,
		PinnedOnly: params.PinnedOnly,
	})

	total := len(matched)
	if len(matched) > maxResults {
		matched = matched[:maxResults]
	}

	ordering := make([]string, 0, len(matched))
	for i := range matched {
		ordering = append(ordering, matched[i].Path)
	}

	buckets := library.GroupByDate(clockwork.NewRealClock(), matched)
	groups := make([]models.SearchResultGroup, 0, len(buckets))
	for _, bucket := range buckets {
		group := models.SearchResultGroup{
			Label:   bucket.Label,
			Entries: make([]models.EntryInfo, 0, len(bucket.Entries)),
		}
		for i := range bucket.Entries {
			group.Entries = append(group.Entries, models.NewEntryInfo(&bucket.Entries[i]))
		}
		groups = append(groups, group)
	}

	return models.SearchResults{
		Groups:   groups,
		Ordering: ordering,
		Total:    total,
	}, nil
}

func HandleEntries(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received entries request")

	entries := env.State.Entries()
	infos := make([]models.EntryInfo, 0, len(entries))
	for i := range entries {
		infos = append(infos, models.NewEntryInfo(&entries[i]))
	}

	return models.EntriesResponse{
		Entries: infos,
		Total:   len(infos),
	}, nil
}

func HandleDelete(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received delete request")

	var params models.DeleteEntriesParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	outcome := env.Reconciler.DeletePaths(params.Paths)

	resp := models.DeleteEntriesResponse{
		Deleted: outcome.Deleted,
	}
	if resp.Deleted == nil {
		resp.Deleted = make([]string, 0)
	}
	if len(outcome.Failed) > 0 {
		resp.Failed = outcome.Failed
	}
	return resp, nil
}

func HandlePin(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received pin request")

	var params models.PinParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	pinned, err := env.Reconciler.TogglePin(params.Path)
	if err != nil {
		return nil, errors.New("error toggling pin: " + err.Error())
	}

	return models.PinResponse{
		Path:   params.Path,
		Pinned: pinned,
	}, nil
}

func HandleCustomTagAdd(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received custom tag add request")

	var params models.CustomTagParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	tags, err := env.Reconciler.AddCustomTag(params.Path, params.Tag)
	if err != nil {
		return nil, errors.New("error adding custom tag: " + err.Error())
	}

	return models.CustomTagsResponse{Tags: tags}, nil
}

func HandleCustomTagRemove(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received custom tag remove request")

	var params models.CustomTagParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	tags, err := env.Reconciler.RemoveCustomTag(params.Path, params.Tag)
	if err != nil {
		return nil, errors.New("error removing custom tag: " + err.Error())
	}

	return models.CustomTagsResponse{Tags: tags}, nil
}

func HandleCustomTags(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received custom tags request")

	tags, err := env.Database.Library.AllCustomTags()
	if err != nil {
		log.Error().Err(err).Msg("error listing custom tags")
		return nil, errors.New("error listing custom tags")
	}
	if tags == nil {
		tags = make([]string, 0)
	}

	return models.CustomTagsResponse{Tags: tags}, nil
}

func HandleReclassify(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received reclassify request")

	scanned, updated := env.Reconciler.Reclassify()

	return models.ReclassifyResponse{
		Scanned: scanned,
		Updated: updated,
	}, nil
}

// HandleUpdateHash stores a perceptual hash computed by the external vision
// producer. A hash for a path the library does not know updates nothing;
// producers submit hashes after the entry is indexed and redeliver on the
// next pass either way.
func HandleUpdateHash(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received hash update request")

	var params models.UpdateHashParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	path := library.NormalizePath(params.Path)
	if err := env.Database.Library.UpdatePerceptualHash(path, params.Hash); err != nil {
		log.Error().Err(err).Str("path", path).Msg("error storing perceptual hash")
		return nil, errors.New("error storing perceptual hash")
	}

	return NoContent{}, nil
}
