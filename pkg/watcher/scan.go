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

package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/GlanceProject/glance-core/pkg/library"
	"github.com/charlievieth/fastwalk"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// CatchUp reconciles the store against what is actually on disk. Files in
// a watch dir with no library entry are reported as detected, the same as
// if they had just appeared; entries whose file no longer exists are
// removed. Events that arrived while the service was down are not lost,
// they are rediscovered here.
func (w *Watcher) CatchUp() {
	dirs := w.cfg.WatchDirs()
	if len(dirs) == 0 {
		return
	}

	known := make(map[string]string)
	for _, entry := range w.st.Entries() {
		known[library.PathKey(entry.Path)] = entry.Path
	}

	var (
		mu       sync.Mutex
		onDisk   = make(map[string]bool)
		newFiles []string
	)

	conf := fastwalk.Config{Follow: false}
	var g errgroup.Group
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		g.Go(func() error {
			return fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					log.Warn().Err(err).Str("path", path).Msg("catch-up scan cannot read path")
					return nil
				}
				if d.IsDir() {
					if path != dir && strings.HasPrefix(filepath.Base(path), ".") {
						return filepath.SkipDir
					}
					return nil
				}
				if !w.relevant(path) {
					return nil
				}

				key := library.PathKey(path)
				mu.Lock()
				onDisk[key] = true
				if _, have := known[key]; !have {
					newFiles = append(newFiles, path)
				}
				mu.Unlock()
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("catch-up scan incomplete")
	}

	var vanished []string
	for key, path := range known {
		if onDisk[key] || !w.cfg.IsWatchedPath(path) {
			continue
		}
		// The walk can race a slow mount, double check before removing.
		if _, err := os.Stat(path); err == nil || !os.IsNotExist(err) {
			continue
		}
		vanished = append(vanished, path)
	}
	if len(vanished) > 0 {
		w.rec.RemoveMissing(vanished)
	}

	sort.Strings(newFiles)
	for _, path := range newFiles {
		select {
		case <-w.stopChan:
			return
		default:
		}
		w.checkPath(path)
	}

	log.Info().
		Int("new", len(newFiles)).
		Int("missing", len(vanished)).
		Msg("catch-up scan finished")
}
