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

// Package notifications sends typed notifications into the state channel.
// Payloads are marshaled here so subscribers and the broker only ever see
// raw JSON.
package notifications

import (
	"encoding/json"

	"github.com/GlanceProject/glance-core/pkg/api/models"
	"github.com/rs/zerolog/log"
)

// send never blocks: a full channel drops the notification instead of
// wedging the reconciler or an API handler behind a slow subscriber.
func send(ns chan<- models.Notification, method string, payload any) {
	notification := models.Notification{Method: method}
	if payload != nil {
		params, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("method", method).Msg("failed to marshal notification params")
			return
		}
		notification.Params = params
	}
	select {
	case ns <- notification:
	default:
		log.Warn().Str("method", method).Msg("notification channel full, dropping notification")
	}
}

func LibraryIndexed(ns chan<- models.Notification, payload models.IndexedParams) {
	send(ns, models.NotificationLibraryIndexed, payload)
}

func LibraryRemoved(ns chan<- models.Notification, paths []string) {
	send(ns, models.NotificationLibraryRemoved, models.RemovedParams{Paths: paths})
}

func LibraryStatus(ns chan<- models.Notification, payload models.StatusParams) {
	send(ns, models.NotificationLibraryStatus, payload)
}

func LibraryBatch(ns chan<- models.Notification, payload models.BatchParams) {
	send(ns, models.NotificationLibraryBatch, payload)
}

func LibraryDetected(ns chan<- models.Notification, path string) {
	send(ns, models.NotificationLibraryDetected, models.DetectedParams{Path: path})
}

func SearchesUpdated(ns chan<- models.Notification) {
	send(ns, models.NotificationSearchesUpdated, nil)
}
