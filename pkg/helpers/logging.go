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

package helpers

import (
	"io"
	"os"
	"path/filepath"

	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var logWriter io.Writer

// LogWriter returns the rotating file writer set up by InitLogging.
// Returns nil if InitLogging has not run.
func LogWriter() io.Writer {
	return logWriter
}

// InitLogging sets up the global logger with a rotating log file in the
// temp dir plus any extra writers (e.g. a console writer in foreground mode).
func InitLogging(writers []io.Writer) error {
	err := os.MkdirAll(TempDir(), 0o750)
	if err != nil {
		return err
	}

	logWriter = &lumberjack.Logger{
		Filename:   filepath.Join(TempDir(), config.LogFile),
		MaxSize:    1,
		MaxBackups: 2,
	}

	logWriters := []io.Writer{logWriter}
	if len(writers) > 0 {
		logWriters = append(logWriters, writers...)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	log.Logger = log.Output(io.MultiWriter(logWriters...)).
		With().Timestamp().Caller().Logger()

	return nil
}
