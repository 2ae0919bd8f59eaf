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

package requests

import (
	"encoding/json"

	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/GlanceProject/glance-core/pkg/database"
	"github.com/GlanceProject/glance-core/pkg/service/reconciler"
	"github.com/GlanceProject/glance-core/pkg/service/state"
	"github.com/google/uuid"
)

// RequestEnv is everything a method handler may touch. Handlers are plain
// functions; the server fills one env per request.
type RequestEnv struct {
	Config     *config.Instance
	State      *state.State
	Database   *database.Database
	Reconciler *reconciler.Reconciler
	Params     json.RawMessage
	ID         uuid.UUID
	IsLocal    bool
}
