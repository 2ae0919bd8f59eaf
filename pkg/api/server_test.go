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

package api

import (
	"errors"
	"testing"

	"github.com/GlanceProject/glance-core/pkg/api/models/requests"
	"github.com/GlanceProject/glance-core/pkg/api/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodMap_AddAndGet(t *testing.T) {
	t.Parallel()

	m := NewMethodMap()

	err := m.AddMethod("Test.Echo", func(_ requests.RequestEnv) (any, error) {
		return "echo", nil
	})
	require.NoError(t, err)

	// lookup is case-insensitive
	fn, ok := m.GetMethod("test.echo")
	require.True(t, ok)
	result, err := fn(requests.RequestEnv{})
	require.NoError(t, err)
	assert.Equal(t, "echo", result)

	fn, ok = m.GetMethod("TEST.ECHO")
	require.True(t, ok)
	assert.NotNil(t, fn)

	_, ok = m.GetMethod("test.missing")
	assert.False(t, ok)
}

func TestMethodMap_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	m := NewMethodMap()
	handler := func(_ requests.RequestEnv) (any, error) { return nil, nil }

	require.NoError(t, m.AddMethod("library.search", handler))

	err := m.AddMethod("Library.Search", handler)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestMethodMap_RejectsInvalidRegistrations(t *testing.T) {
	t.Parallel()

	m := NewMethodMap()

	err := m.AddMethod("", func(_ requests.RequestEnv) (any, error) { return nil, nil })
	require.Error(t, err)

	err = m.AddMethod("test.nil", nil)
	require.Error(t, err)
}

func TestDefaultMethodMap_RegistersAllMethods(t *testing.T) {
	t.Parallel()

	m := defaultMethodMap()

	for _, method := range []string{
		"library.search",
		"library.entries",
		"library.delete",
		"library.pin",
		"library.tags.custom.add",
		"library.tags.custom.remove",
		"library.tags.custom",
		"library.reclassify",
		"library.hashes.update",
		"library.stats",
		"searches.save",
		"searches.delete",
		"searches.all",
		"duplicates.find",
		"duplicates.resolve",
		"ocr.event",
		"ocr.tags",
		"ocr.batch",
		"version",
	} {
		_, ok := m.GetMethod(method)
		assert.True(t, ok, "method %s should be registered", method)
	}
}

func TestMethodErrorObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err          error
		name         string
		expectedCode int
	}{
		{
			name:         "missing params",
			err:          validation.ErrMissingParams,
			expectedCode: -32602,
		},
		{
			name:         "invalid params",
			err:          validation.ErrInvalidParams,
			expectedCode: -32602,
		},
		{
			name: "field validation failure",
			err: &validation.Error{Fields: []validation.FieldError{
				{Field: "Path", Tag: "required", Message: "path is required"},
			}},
			expectedCode: -32602,
		},
		{
			name:         "handler error",
			err:          errors.New("database unavailable"),
			expectedCode: -32000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			obj := methodErrorObject(tt.err)
			assert.Equal(t, tt.expectedCode, obj.Code)
			assert.Equal(t, tt.err.Error(), obj.Message)
		})
	}
}
