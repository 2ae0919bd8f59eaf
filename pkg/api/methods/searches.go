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
	"github.com/GlanceProject/glance-core/pkg/api/notifications"
	"github.com/GlanceProject/glance-core/pkg/api/validation"
	"github.com/GlanceProject/glance-core/pkg/database"
	"github.com/rs/zerolog/log"
)

// Saved searches are plain named filter tuples. Saving under an existing
// name overwrites it; every change pings subscribers so clients can refresh
// their sidebar.

func HandleSaveSearch(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received save search request")

	var params models.SaveSearchParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	search := database.SavedSearch{
		Name:       params.Name,
		Query:      params.Query,
		Collection: params.Collection,
	}
	if err := env.Database.Library.SaveSavedSearch(&search); err != nil {
		log.Error().Err(err).Str("name", params.Name).Msg("error saving search")
		return nil, errors.New("error saving search")
	}

	notifications.SearchesUpdated(env.State.Notifications)
	return search, nil
}

func HandleDeleteSearch(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received delete search request")

	var params models.DeleteSearchParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	if err := env.Database.Library.DeleteSavedSearch(params.ID); err != nil {
		log.Error().Err(err).Int64("id", params.ID).Msg("error deleting search")
		return nil, errors.New("error deleting search")
	}

	notifications.SearchesUpdated(env.State.Notifications)
	return NoContent{}, nil
}

func HandleSearches(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received searches request")

	searches, err := env.Database.Library.AllSavedSearches()
	if err != nil {
		log.Error().Err(err).Msg("error listing searches")
		return nil, errors.New("error listing searches")
	}

	return models.SearchesResponse{Searches: searches}, nil
}
