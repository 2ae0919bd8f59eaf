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
	"encoding/json"

	"github.com/google/uuid"
)

const (
	NotificationLibraryIndexed  = "library.indexed"
	NotificationLibraryRemoved  = "library.removed"
	NotificationLibraryStatus   = "library.status"
	NotificationLibraryBatch    = "library.batch"
	NotificationLibraryDetected = "library.detected"
	NotificationSearchesUpdated = "searches.updated"
)

const (
	MethodLibrarySearch       = "library.search"
	MethodLibraryEntries      = "library.entries"
	MethodLibraryDelete       = "library.delete"
	MethodLibraryPin          = "library.pin"
	MethodLibraryCustomAdd    = "library.tags.custom.add"
	MethodLibraryCustomRemove = "library.tags.custom.remove"
	MethodLibraryCustomAll    = "library.tags.custom"
	MethodLibraryReclassify   = "library.reclassify"
	MethodLibraryHashesUpdate = "library.hashes.update"
	MethodLibraryStats        = "library.stats"
	MethodSearchesSave        = "searches.save"
	MethodSearchesDelete      = "searches.delete"
	MethodSearchesAll         = "searches.all"
	MethodDuplicatesFind      = "duplicates.find"
	MethodDuplicatesResolve   = "duplicates.resolve"
	MethodOcrEvent            = "ocr.event"
	MethodOcrTags             = "ocr.tags"
	MethodOcrBatch            = "ocr.batch"
	MethodVersion             = "version"
)

type Notification struct {
	Method string
	Params json.RawMessage
}

type RequestObject struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uuid.UUID      `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type ResponseObject struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      uuid.UUID    `json:"id"`
	Result  any          `json:"result"`
	Error   *ErrorObject `json:"error,omitempty"`
}

// ResponseErrorObject exists for sending errors, so we can omit result from
// the response, but so nil responses are still returned when using the main
// ResponseObject.
type ResponseErrorObject struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      uuid.UUID    `json:"id"`
	Error   *ErrorObject `json:"error"`
}
