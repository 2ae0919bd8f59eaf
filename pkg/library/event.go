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
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog/log"
)

// OCR event statuses reported by producers.
const (
	StatusProcessing = "processing"
	StatusIdle       = "idle"
)

// OcrEvent is the strict form of a producer's OCR report. Producers push
// these at least once, in any order, with loosely typed payloads; parsing
// happens once at the ingestion boundary so everything downstream works with
// real types.
type OcrEvent struct {
	CreatedAt time.Time `mapstructure:"created_at"`
	Status    string    `mapstructure:"status"    validate:"required,oneof=processing idle"`
	Path      string    `mapstructure:"path"`
	Text      string    `mapstructure:"text"`
	Error     string    `mapstructure:"error"`
	Tags      []string  `mapstructure:"tags"`
	URLs      []string  `mapstructure:"urls"`
	Emails    []string  `mapstructure:"emails"`
}

// TagsUpdate replaces the tag set for a path after out-of-band
// classification finishes.
type TagsUpdate struct {
	Path string   `mapstructure:"path" validate:"required"`
	Tags []string `mapstructure:"tags"`
}

// BatchProgress is the advisory ingestion-progress counter set reported by
// producers. The core stores it verbatim.
type BatchProgress struct {
	Total      int     `mapstructure:"total"`
	Completed  int     `mapstructure:"completed"`
	Percent    float64 `mapstructure:"percent"`
	EtaSeconds int     `mapstructure:"eta_seconds"`
	InProgress bool    `mapstructure:"in_progress"`
}

// EventParser decodes loosely typed producer payloads into the strict event
// schema. Stringified numbers and JSON-encoded arrays are converted;
// malformed optional fields fall back to their zero values rather than
// rejecting the whole event. Only a missing or unknown status is fatal.
type EventParser struct {
	validate *validator.Validate
}

// NewEventParser creates an EventParser.
func NewEventParser() *EventParser {
	return &EventParser{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// DefaultEventParser is a shared parser for simple use cases.
var DefaultEventParser = NewEventParser()

// ParseOcrEvent decodes a raw OCR report.
func (p *EventParser) ParseOcrEvent(raw map[string]any) (OcrEvent, error) {
	var ev OcrEvent
	if err := p.decode(raw, &ev); err != nil {
		return OcrEvent{}, err
	}
	ev.Path = NormalizePath(ev.Path)
	return ev, nil
}

// ParseTagsUpdate decodes a raw tags-updated report.
func (p *EventParser) ParseTagsUpdate(raw map[string]any) (TagsUpdate, error) {
	var ev TagsUpdate
	if err := p.decode(raw, &ev); err != nil {
		return TagsUpdate{}, err
	}
	ev.Path = NormalizePath(ev.Path)
	return ev, nil
}

// ParseBatchProgress decodes a raw batch-progress report.
func (p *EventParser) ParseBatchProgress(raw map[string]any) (BatchProgress, error) {
	var ev BatchProgress
	if err := p.decode(raw, &ev); err != nil {
		return BatchProgress{}, err
	}
	return ev, nil
}

func (p *EventParser) decode(raw map[string]any, dest any) error {
	decoderConfig := &mapstructure.DecoderConfig{
		Result:           dest,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			millisToTimeHook(),
			jsonArrayHook(),
		),
	}

	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}

	if err := p.validate.Struct(dest); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			msgs := make([]string, len(validationErrors))
			for i, fe := range validationErrors {
				msgs[i] = fmt.Sprintf("%s failed %s validation",
					strings.ToLower(fe.Field()), fe.Tag())
			}
			return fmt.Errorf("invalid event: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// millisToTimeHook converts epoch-millisecond timestamps, numeric or
// stringified, to time.Time. Unparsable values become the zero time.
func millisToTimeHook() mapstructure.DecodeHookFunc {
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Time{}) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			trimmed := strings.TrimSpace(v)
			if trimmed == "" {
				return time.Time{}, nil
			}
			ms, err := strconv.ParseInt(trimmed, 10, 64)
			if err != nil {
				log.Warn().Msgf("unparsable event timestamp: %q", v)
				return time.Time{}, nil
			}
			return time.UnixMilli(ms), nil
		case float64:
			return time.UnixMilli(int64(v)), nil
		case int64:
			return time.UnixMilli(v), nil
		case int:
			return time.UnixMilli(int64(v)), nil
		default:
			return data, nil
		}
	}
}

// jsonArrayHook converts a JSON-encoded array string to []string. Malformed
// strings become an empty slice.
func jsonArrayHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String {
			return data, nil
		}
		if to != reflect.TypeOf([]string{}) {
			return data, nil
		}

		str, ok := data.(string)
		if !ok || strings.TrimSpace(str) == "" {
			return []string{}, nil
		}

		var out []string
		if err := json.Unmarshal([]byte(str), &out); err != nil {
			log.Warn().Msgf("unparsable event array field: %q", str)
			return []string{}, nil
		}
		return out, nil
	}
}
