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

// OCR ingestion endpoints. Producers are external processes with loose
// serializers: numbers arrive stringified, arrays arrive JSON-encoded in
// strings. Payloads are decoded into the strict event schema here, at the
// boundary, and everything past the queue works with real types.

package methods

import (
	"encoding/json"

	"github.com/GlanceProject/glance-core/pkg/api/models/requests"
	"github.com/GlanceProject/glance-core/pkg/api/validation"
	"github.com/GlanceProject/glance-core/pkg/library"
	"github.com/GlanceProject/glance-core/pkg/service/reconciler"
	"github.com/rs/zerolog/log"
)

func rawEventPayload(params json.RawMessage) (map[string]any, error) {
	if len(params) == 0 {
		return nil, validation.ErrMissingParams
	}
	var raw map[string]any
	if err := json.Unmarshal(params, &raw); err != nil {
		return nil, validation.ErrInvalidParams
	}
	return raw, nil
}

func HandleOcrEvent(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received ocr event request")

	raw, err := rawEventPayload(env.Params)
	if err != nil {
		return nil, err
	}

	event, err := library.DefaultEventParser.ParseOcrEvent(raw)
	if err != nil {
		log.Warn().Err(err).Msg("rejected malformed ocr event")
		return nil, validation.ErrInvalidParams
	}

	if err := env.Reconciler.Enqueue(reconciler.Event{Ocr: &event}); err != nil {
		log.Warn().Err(err).Str("path", event.Path).Msg("failed to enqueue ocr event")
		return nil, err
	}
	return NoContent{}, nil
}

func HandleOcrTags(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received ocr tags request")

	raw, err := rawEventPayload(env.Params)
	if err != nil {
		return nil, err
	}

	update, err := library.DefaultEventParser.ParseTagsUpdate(raw)
	if err != nil {
		log.Warn().Err(err).Msg("rejected malformed tags update")
		return nil, validation.ErrInvalidParams
	}

	if err := env.Reconciler.Enqueue(reconciler.Event{Tags: &update}); err != nil {
		log.Warn().Err(err).Str("path", update.Path).Msg("failed to enqueue tags update")
		return nil, err
	}
	return NoContent{}, nil
}

func HandleOcrBatch(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received ocr batch request")

	raw, err := rawEventPayload(env.Params)
	if err != nil {
		return nil, err
	}

	progress, err := library.DefaultEventParser.ParseBatchProgress(raw)
	if err != nil {
		log.Warn().Err(err).Msg("rejected malformed batch progress")
		return nil, validation.ErrInvalidParams
	}

	if err := env.Reconciler.Enqueue(reconciler.Event{Batch: &progress}); err != nil {
		log.Warn().Err(err).Msg("failed to enqueue batch progress")
		return nil, err
	}
	return NoContent{}, nil
}
