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

// Package reconciler owns every mutation of the canonical entry set.
//
// Producer events flow through a bounded queue into a single consumer loop;
// user-driven mutations (delete, pin, custom tags, reclassify) are direct
// method calls. Both share one mutation lock, so no two mutations ever
// interleave their read-modify-write of the set. Reads everywhere else are
// lock-free snapshots from the state package.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/GlanceProject/glance-core/pkg/api/models"
	"github.com/GlanceProject/glance-core/pkg/api/notifications"
	"github.com/GlanceProject/glance-core/pkg/classifier"
	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/GlanceProject/glance-core/pkg/database"
	"github.com/GlanceProject/glance-core/pkg/files"
	"github.com/GlanceProject/glance-core/pkg/helpers/syncutil"
	"github.com/GlanceProject/glance-core/pkg/library"
	"github.com/GlanceProject/glance-core/pkg/service/state"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// DefaultQueueSize is the default capacity of the event queue.
const DefaultQueueSize = 256

var ErrQueueFull = errors.New("event queue is full")

// Event is one unit of producer input. Exactly one field is set.
type Event struct {
	Ocr   *library.OcrEvent
	Tags  *library.TagsUpdate
	Batch *library.BatchProgress
}

type Reconciler struct {
	ctx        context.Context
	cfg        *config.Instance
	st         *state.State
	db         *database.Database
	clock      clockwork.Clock
	queue      chan Event
	dedupeGate rate.Sometimes
	mu         syncutil.Mutex
	wg         sync.WaitGroup
}

func New(cfg *config.Instance, st *state.State, db *database.Database, clock clockwork.Clock) *Reconciler {
	return &Reconciler{
		ctx:   st.GetContext(),
		cfg:   cfg,
		st:    st,
		db:    db,
		clock: clock,
		queue: make(chan Event, DefaultQueueSize),
		dedupeGate: rate.Sometimes{
			Interval: cfg.DedupeInterval(),
		},
	}
}

// LoadFromStore bulk-loads the persisted library into memory. Rows that
// collapse in the load-time dedupe are pruned from the store so they do not
// resurface on the next boot.
func (r *Reconciler) LoadFromStore() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.db.Library.LoadAllEntries()
	if err != nil {
		return fmt.Errorf("failed to load entries: %w", err)
	}

	deduped := library.Dedupe(entries)
	if removed := removedPaths(entries, deduped); len(removed) > 0 {
		log.Info().Int("count", len(removed)).Msg("collapsed duplicate entries during load")
		if _, err := r.db.Library.DeleteEntries(removed); err != nil {
			log.Warn().Err(err).Msg("failed to prune duplicate entry rows")
		}
	}
	library.SortEntries(deduped)
	r.st.SetEntries(deduped)

	log.Info().Int("entries", len(deduped)).Msg("library loaded from store")
	return nil
}

// Start launches the consumer loop. Events are handled one at a time in
// arrival order; the loop exits when the service context is canceled.
func (r *Reconciler) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		log.Debug().Msg("reconciler loop started")
		for {
			select {
			case <-r.ctx.Done():
				log.Debug().Msg("reconciler loop stopped")
				return
			case event := <-r.queue:
				r.handle(event)
			}
		}
	}()
}

// Stop blocks until the consumer loop has exited. The service context must
// already be canceled.
func (r *Reconciler) Stop() {
	r.wg.Wait()
}

// Enqueue submits a producer event. It never blocks: a full queue is
// reported back to the producer, which can retry (delivery is at-least-once
// anyway).
func (r *Reconciler) Enqueue(event Event) error {
	if err := r.ctx.Err(); err != nil {
		return fmt.Errorf("reconciler stopped: %w", err)
	}
	select {
	case r.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

func (r *Reconciler) handle(event Event) {
	switch {
	case event.Batch != nil:
		r.st.SetBatch(*event.Batch)
	case event.Tags != nil:
		r.applyTagsUpdate(event.Tags)
	case event.Ocr != nil:
		r.applyOcrEvent(event.Ocr)
	}
	r.safetyNet()
}

func (r *Reconciler) applyOcrEvent(event *library.OcrEvent) {
	if event.Status == library.StatusProcessing {
		r.st.SetProcessing(event.Path)
		return
	}

	r.mu.Lock()
	entries := r.st.Entries()
	result, outcome := applyIndexed(entries, event, r.clock.Now())
	if outcome.Applied {
		r.st.SetEntries(result)
		r.persistApply(&outcome)
	}
	r.mu.Unlock()

	r.st.SetIdle()
	if event.Error != "" {
		r.st.SetError(event.Error)
	}
	if outcome.Applied {
		notifications.LibraryIndexed(r.st.Notifications, models.IndexedParams{
			Entry: models.NewEntryInfo(&outcome.Entry),
		})
	}
}

// persistApply mirrors one applied event into the store. Store failures are
// logged and swallowed; the in-memory set is the source of truth and a
// failed write never rolls it back or stops ingestion.
func (r *Reconciler) persistApply(outcome *applyOutcome) {
	if outcome.RenamedFrom != "" {
		if err := r.db.Library.UpdateEntryPath(outcome.RenamedFrom, outcome.Entry.Path); err != nil {
			log.Warn().Err(err).
				Str("from", outcome.RenamedFrom).
				Str("to", outcome.Entry.Path).
				Msg("failed to persist entry rename")
			if _, delErr := r.db.Library.DeleteEntries([]string{outcome.RenamedFrom}); delErr != nil {
				log.Warn().Err(delErr).Msg("failed to drop stale entry row")
			}
		}
	}

	entry := outcome.Entry
	if err := r.db.Library.UpsertEntry(&entry); err != nil {
		log.Warn().Err(err).Str("path", entry.Path).Msg("failed to persist entry")
	}

	if len(outcome.Removed) > 0 {
		if _, err := r.db.Library.DeleteEntries(outcome.Removed); err != nil {
			log.Warn().Err(err).Msg("failed to prune duplicate entry rows")
		}
	}
}

func (r *Reconciler) applyTagsUpdate(update *library.TagsUpdate) {
	r.mu.Lock()
	entries := r.st.Entries()
	entry, ok := replaceTags(entries, update, r.clock.Now())
	if ok {
		r.st.SetEntries(entries)
		if err := r.db.Library.UpdateEntryTags(entry.Path, entry.Tags); err != nil {
			log.Warn().Err(err).Str("path", entry.Path).Msg("failed to persist tags update")
		}
	}
	r.mu.Unlock()

	if !ok {
		log.Debug().Str("path", update.Path).Msg("tags update for unknown path, dropping")
		return
	}
	notifications.LibraryIndexed(r.st.Notifications, models.IndexedParams{
		Entry: models.NewEntryInfo(&entry),
	})
}

// safetyNet runs a full dedupe pass at most once per configured interval,
// and only once the store is big enough for a reconciliation bug to matter.
// Inline dedupe after every apply should make this a no-op; if it ever
// removes anything, that is a bug worth a loud log line.
func (r *Reconciler) safetyNet() {
	if r.st.EntryCount() <= r.cfg.DedupeThreshold() {
		return
	}
	r.dedupeGate.Do(r.dedupePass)
}

func (r *Reconciler) dedupePass() {
	r.mu.Lock()
	entries := r.st.Entries()
	deduped := library.Dedupe(entries)
	removed := removedPaths(entries, deduped)
	if len(removed) == 0 {
		r.mu.Unlock()
		return
	}
	library.SortEntries(deduped)
	r.st.SetEntries(deduped)
	if _, err := r.db.Library.DeleteEntries(removed); err != nil {
		log.Warn().Err(err).Msg("failed to prune duplicate entry rows")
	}
	r.mu.Unlock()

	log.Warn().Int("count", len(removed)).Msg("dedupe safety net removed duplicate entries")
}

// DeletePaths deletes files from disk and drops their entries. Each path
// succeeds or fails on its own; successes stick even when siblings fail.
func (r *Reconciler) DeletePaths(paths []string) files.DeleteOutcome {
	r.mu.Lock()
	outcome := files.DeleteFiles(r.cfg, paths)

	gone := make(map[string]struct{}, len(outcome.Deleted))
	for _, path := range outcome.Deleted {
		gone[library.PathKey(path)] = struct{}{}
	}

	entries := r.st.Entries()
	kept := make([]library.Entry, 0, len(entries))
	var removed []string
	for i := range entries {
		if _, ok := gone[library.PathKey(entries[i].Path)]; ok {
			removed = append(removed, entries[i].Path)
			continue
		}
		kept = append(kept, entries[i])
	}
	if len(removed) > 0 {
		r.st.SetEntries(kept)
		if _, err := r.db.Library.DeleteEntries(removed); err != nil {
			log.Warn().Err(err).Msg("failed to delete entry rows")
		}
	}
	r.mu.Unlock()

	if len(removed) > 0 {
		notifications.LibraryRemoved(r.st.Notifications, removed)
	}
	return outcome
}

// RemoveMissing drops entries whose paths are no longer present on disk,
// reported by the catch-up scan. No file operations happen here.
func (r *Reconciler) RemoveMissing(paths []string) {
	if len(paths) == 0 {
		return
	}

	missing := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		missing[library.PathKey(path)] = struct{}{}
	}

	r.mu.Lock()
	entries := r.st.Entries()
	kept := make([]library.Entry, 0, len(entries))
	var removed []string
	for i := range entries {
		if _, ok := missing[library.PathKey(entries[i].Path)]; ok {
			removed = append(removed, entries[i].Path)
			continue
		}
		kept = append(kept, entries[i])
	}
	if len(removed) > 0 {
		r.st.SetEntries(kept)
		if _, err := r.db.Library.DeleteEntries(removed); err != nil {
			log.Warn().Err(err).Msg("failed to delete entry rows")
		}
	}
	r.mu.Unlock()

	if len(removed) > 0 {
		log.Info().Int("count", len(removed)).Msg("removed entries for files missing on disk")
		notifications.LibraryRemoved(r.st.Notifications, removed)
	}
}

// TogglePin flips the pin state of an entry and returns the new state.
func (r *Reconciler) TogglePin(path string) (bool, error) {
	r.mu.Lock()
	entries := r.st.Entries()
	idx := indexOf(entries, path)
	if idx < 0 {
		r.mu.Unlock()
		return false, fmt.Errorf("no entry for path: %s", path)
	}
	entries[idx].Pinned = !entries[idx].Pinned
	entries[idx].UpdatedAt = r.clock.Now()
	entry := entries[idx]
	r.st.SetEntries(entries)
	if err := r.db.Library.SetPinned(entry.Path, entry.Pinned); err != nil {
		log.Warn().Err(err).Str("path", entry.Path).Msg("failed to persist pin state")
	}
	r.mu.Unlock()

	notifications.LibraryIndexed(r.st.Notifications, models.IndexedParams{
		Entry: models.NewEntryInfo(&entry),
	})
	return entry.Pinned, nil
}

// AddCustomTag appends a user label to an entry. Adding a label the entry
// already has is a no-op, not an error.
func (r *Reconciler) AddCustomTag(path, tag string) ([]string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, errors.New("custom tag is empty")
	}

	r.mu.Lock()
	entries := r.st.Entries()
	idx := indexOf(entries, path)
	if idx < 0 {
		r.mu.Unlock()
		return nil, fmt.Errorf("no entry for path: %s", path)
	}
	if slices.Contains(entries[idx].CustomTags, tag) {
		tags := slices.Clone(entries[idx].CustomTags)
		r.mu.Unlock()
		return tags, nil
	}
	entries[idx].CustomTags = append(slices.Clone(entries[idx].CustomTags), tag)
	entries[idx].UpdatedAt = r.clock.Now()
	entry := entries[idx]
	r.st.SetEntries(entries)
	if err := r.db.Library.SetCustomTags(entry.Path, entry.CustomTags); err != nil {
		log.Warn().Err(err).Str("path", entry.Path).Msg("failed to persist custom tags")
	}
	r.mu.Unlock()

	notifications.LibraryIndexed(r.st.Notifications, models.IndexedParams{
		Entry: models.NewEntryInfo(&entry),
	})
	return entry.CustomTags, nil
}

// RemoveCustomTag drops a user label from an entry. Removing a label the
// entry does not have is a no-op.
func (r *Reconciler) RemoveCustomTag(path, tag string) ([]string, error) {
	tag = strings.TrimSpace(tag)

	r.mu.Lock()
	entries := r.st.Entries()
	idx := indexOf(entries, path)
	if idx < 0 {
		r.mu.Unlock()
		return nil, fmt.Errorf("no entry for path: %s", path)
	}
	if !slices.Contains(entries[idx].CustomTags, tag) {
		tags := slices.Clone(entries[idx].CustomTags)
		r.mu.Unlock()
		return tags, nil
	}
	kept := make([]string, 0, len(entries[idx].CustomTags)-1)
	for _, t := range entries[idx].CustomTags {
		if t != tag {
			kept = append(kept, t)
		}
	}
	entries[idx].CustomTags = kept
	entries[idx].UpdatedAt = r.clock.Now()
	entry := entries[idx]
	r.st.SetEntries(entries)
	if err := r.db.Library.SetCustomTags(entry.Path, entry.CustomTags); err != nil {
		log.Warn().Err(err).Str("path", entry.Path).Msg("failed to persist custom tags")
	}
	r.mu.Unlock()

	notifications.LibraryIndexed(r.st.Notifications, models.IndexedParams{
		Entry: models.NewEntryInfo(&entry),
	})
	return entry.CustomTags, nil
}

// Reclassify re-runs the tag classifier and URL/email extraction over every
// entry with text. Entries whose derived fields did not change are left
// untouched.
func (r *Reconciler) Reclassify() (scanned, updated int) {
	r.mu.Lock()
	entries := r.st.Entries()
	now := r.clock.Now()
	var changed []library.Entry
	for i := range entries {
		if entries[i].Text == "" {
			continue
		}
		scanned++
		tags := classifier.Classify(entries[i].Text)
		urls := classifier.ExtractURLs(entries[i].Text)
		emails := classifier.ExtractEmails(entries[i].Text)
		if slices.Equal(tags, entries[i].Tags) &&
			slices.Equal(urls, entries[i].URLs) &&
			slices.Equal(emails, entries[i].Emails) {
			continue
		}
		entries[i].Tags = tags
		entries[i].URLs = urls
		entries[i].Emails = emails
		entries[i].UpdatedAt = now
		changed = append(changed, entries[i])
	}
	updated = len(changed)
	if updated > 0 {
		r.st.SetEntries(entries)
		for i := range changed {
			if err := r.db.Library.UpsertEntry(&changed[i]); err != nil {
				log.Warn().Err(err).Str("path", changed[i].Path).Msg("failed to persist entry")
			}
		}
	}
	r.mu.Unlock()

	for i := range changed {
		notifications.LibraryIndexed(r.st.Notifications, models.IndexedParams{
			Entry: models.NewEntryInfo(&changed[i]),
		})
	}
	log.Info().Int("scanned", scanned).Int("updated", updated).Msg("reclassified library")
	return scanned, updated
}

func indexOf(entries []library.Entry, path string) int {
	key := library.PathKey(path)
	for i := range entries {
		if library.PathKey(entries[i].Path) == key {
			return i
		}
	}
	return -1
}

// removedPaths returns the raw paths present in before but not in after.
func removedPaths(before, after []library.Entry) []string {
	seen := make(map[string]struct{}, len(after))
	for i := range after {
		seen[after[i].Path] = struct{}{}
	}
	var removed []string
	for i := range before {
		if _, ok := seen[before[i].Path]; !ok {
			removed = append(removed, before[i].Path)
		}
	}
	return removed
}
