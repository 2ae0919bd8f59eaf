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
	"time"

	"github.com/jonboulle/clockwork"
)

// Display bucket labels, most recent first. Older entries fall through to a
// calendar month-year label.
const (
	BucketToday     = "Today"
	BucketYesterday = "Yesterday"
	BucketThisWeek  = "This Week"
	BucketThisMonth = "This Month"
)

// DateBucket is one display group of query results.
type DateBucket struct {
	Label   string
	Entries []Entry
}

// GroupByDate splits an already-sorted result list into display buckets.
// Buckets appear in recency order and entries keep their order within each
// bucket, so a newest-first input yields newest-first buckets throughout.
func GroupByDate(clock clockwork.Clock, entries []Entry) []DateBucket {
	var buckets []DateBucket
	index := make(map[string]int)

	now := clock.Now()
	for i := range entries {
		label := bucketLabel(now, entries[i].CreatedAt)
		at, ok := index[label]
		if !ok {
			at = len(buckets)
			index[label] = at
			buckets = append(buckets, DateBucket{Label: label})
		}
		buckets[at].Entries = append(buckets[at].Entries, entries[i])
	}

	return buckets
}

// bucketLabel buckets t relative to now. The week starts on Monday; anything
// in the current calendar month but before this week is "This Month".
func bucketLabel(now, t time.Time) string {
	t = t.In(now.Location())

	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !t.Before(startOfToday) {
		return BucketToday
	}

	startOfYesterday := startOfToday.AddDate(0, 0, -1)
	if !t.Before(startOfYesterday) {
		return BucketYesterday
	}

	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week that started the previous Monday
	}
	startOfWeek := startOfToday.AddDate(0, 0, -(weekday - 1))
	if !t.Before(startOfWeek) {
		return BucketThisWeek
	}

	if t.Year() == now.Year() && t.Month() == now.Month() {
		return BucketThisMonth
	}

	return t.Format("January 2006")
}
