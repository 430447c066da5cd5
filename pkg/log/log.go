// Copyright 2018-2021 CERN
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// In applying this license, CERN does not waive the privileges and immunities
// granted to it by virtue of its status as an Intergovernmental Organization
// or submit itself to any jurisdiction.

// Package log builds the zerolog.Logger used across the naming and
// storage servers. There is no package-level logger: every component
// receives its own instance carrying a "pkg" field, so a test can spin
// up several independent servers without fighting over global state.
package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Mode selects the wire format: "dev" renders a human console writer,
// anything else (notably "prod") emits newline-delimited JSON.
type Mode string

const (
	// ModeDev is the human-readable console format.
	ModeDev Mode = "dev"
	// ModeProd is structured JSON, suitable for log aggregation.
	ModeProd Mode = "prod"
)

// Config controls how New builds a logger.
type Config struct {
	Mode  Mode
	Level zerolog.Level
	Out   io.Writer
}

// New returns a logger tagged with pkg and pid, configured per cfg.
// A zero Config produces a dev-mode logger on stderr at debug level,
// since the zero zerolog.Level is DebugLevel; a Level of
// zerolog.NoLevel (what zerolog.ParseLevel returns for "") selects
// info level.
func New(pkg string, cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeDev
	}

	var w io.Writer = out
	if cfg.Mode == ModeDev {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	level := cfg.Level
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("pkg", pkg).
		Int("pid", os.Getpid()).
		Logger()
}
