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

package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		oldText  string
		newText  string
		expected string
	}{
		{"empty old takes new", "", "hello", "hello"},
		{"empty new keeps old", "hello", "", "hello"},
		{"both empty", "", "", ""},
		{"longer new wins", "hello", "hello world", "hello world"},
		{"shorter subset keeps old", "hello world", "hello", "hello world"},
		{"shorter with new token appends", "hello there world", "hello mars", "hello there world mars"},
		{"equal length new token appends", "hello", "olleh", "hello olleh"},
		{"case-insensitive token comparison", "Hello World", "hello", "Hello World"},
		{"whitespace trimmed", "  hello  ", "hello", "hello"},
		{"duplicate new tokens appended once", "a b", "c c", "a b c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, MergeText(tt.oldText, tt.newText))
		})
	}
}
