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

package reconciler

import (
	"strings"
	"time"

	"github.com/GlanceProject/glance-core/pkg/classifier"
	"github.com/GlanceProject/glance-core/pkg/library"
)

// applyOutcome describes what one indexed event did to the canonical set.
type applyOutcome struct {
	// Entry is a copy of the entry as it exists after the apply. Only valid
	// when Applied is true.
	Entry library.Entry
	// RenamedFrom is the previous canonical path when the event moved an
	// entry, empty otherwise.
	RenamedFrom string
	// Removed lists canonical paths that the post-apply dedupe collapsed
	// away. Their store rows need pruning.
	Removed []string
	Applied bool
}

// applyIndexed folds one idle event into the canonical set and returns the
// new set. The input slice is not modified; the transition is a pure
// function of (entries, event, now) so it can be tested without a running
// loop.
//
// Identity resolution, merge policy and the create path follow the same
// rules in all cases: createdAt is preserved on update, text merges rather
// than overwrites, and the set is deduped and resorted before being
// returned.
func applyIndexed(entries []library.Entry, event *library.OcrEvent, now time.Time) ([]library.Entry, applyOutcome) {
	var outcome applyOutcome

	path := library.NormalizePath(event.Path)
	if path == "" {
		return entries, outcome
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	result := library.CloneEntries(entries)
	idx, found := library.ResolveIdentity(result, path, createdAt)

	// An error report with nothing to index and no entry to attach to
	// stays transient only.
	if !found && event.Error != "" && strings.TrimSpace(event.Text) == "" {
		return entries, outcome
	}

	if found {
		entry := &result[idx]
		if !library.PathsEqual(entry.Path, path) {
			outcome.RenamedFrom = entry.Path
			entry.Path = path
		}
		entry.Text = library.MergeText(entry.Text, event.Text)
		entry.UpdatedAt = now
		decorate(entry, event)
	} else {
		entry := library.Entry{
			Path:      path,
			Text:      library.MergeText("", event.Text),
			CreatedAt: createdAt,
			UpdatedAt: now,
		}
		decorate(&entry, event)
		result = append(result, entry)
		idx = len(result) - 1
	}

	affectedKey := library.PathKey(result[idx].Path)

	before := make(map[string]struct{}, len(result))
	for i := range result {
		before[result[i].Path] = struct{}{}
	}

	result = library.Dedupe(result)
	library.SortEntries(result)

	for i := range result {
		delete(before, result[i].Path)
	}
	for removed := range before {
		outcome.Removed = append(outcome.Removed, removed)
	}

	// The merge target can lose the dedupe to a twin under another raw
	// spelling; report whichever entry survived for that identity.
	for i := range result {
		if library.PathKey(result[i].Path) == affectedKey {
			outcome.Entry = result[i]
			break
		}
	}

	outcome.Applied = true
	return result, outcome
}

// decorate fills tags, URLs and emails on an entry. Producer-supplied values
// are stored verbatim; when the event carries no tags but there is text, the
// built-in classifier runs and URLs/emails are re-extracted alongside it.
func decorate(entry *library.Entry, event *library.OcrEvent) {
	switch {
	case len(event.Tags) > 0:
		entry.Tags = event.Tags
	case entry.Text != "":
		entry.Tags = classifier.Classify(entry.Text)
	}

	switch {
	case len(event.URLs) > 0:
		entry.URLs = event.URLs
	case len(event.Tags) == 0 && entry.Text != "":
		entry.URLs = classifier.ExtractURLs(entry.Text)
	}

	switch {
	case len(event.Emails) > 0:
		entry.Emails = event.Emails
	case len(event.Tags) == 0 && entry.Text != "":
		entry.Emails = classifier.ExtractEmails(entry.Text)
	}
}

// replaceTags swaps the tag set for a path in place. A tags update replaces,
// it never merges, and an empty set is a valid replacement.
func replaceTags(entries []library.Entry, update *library.TagsUpdate, now time.Time) (library.Entry, bool) {
	key := library.PathKey(update.Path)
	for i := range entries {
		if library.PathKey(entries[i].Path) == key {
			entries[i].Tags = update.Tags
			entries[i].UpdatedAt = now
			return entries[i], true
		}
	}
	return library.Entry{}, false
}
