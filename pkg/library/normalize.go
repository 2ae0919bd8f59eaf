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
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// OCR engines systematically confuse look-alike glyphs. These patterns map
// the common confusions back before matching: capital I read for lowercase l
// (worst in chat slang, which has no dictionary words to anchor on), and
// digits read for letters inside words.
var (
	lmfaoRe        = regexp.MustCompile(`(?i)\bimfao+\b`)
	lmaoRe         = regexp.MustCompile(`(?i)\bimao+\b`)
	lolRe          = regexp.MustCompile(`(?i)\bio[li1]\b`)
	wordInitialIRe = regexp.MustCompile(`\bI([a-z]{2,})\b`)
	zeroInWordRe   = regexp.MustCompile(`([a-zA-Z])0+([a-zA-Z])`)
	fiveInWordRe   = regexp.MustCompile(`([a-zA-Z])5([a-zA-Z])`)
	oneInWordRe    = regexp.MustCompile(`([a-zA-Z])1([a-zA-Z])`)
)

// NormalizeSearchText maps text to the form used for search matching:
// OCR confusion fixes, lowercasing, and diacritic folding. It is applied to
// both stored text and queries so confused transcriptions still match what
// the user actually types.
func NormalizeSearchText(text string) string {
	if text == "" {
		return ""
	}

	fixed := lmfaoRe.ReplaceAllString(text, "lmfao")
	fixed = lmaoRe.ReplaceAllString(fixed, "lmao")
	fixed = lolRe.ReplaceAllString(fixed, "lol")
	fixed = wordInitialIRe.ReplaceAllString(fixed, "l$1")
	fixed = zeroInWordRe.ReplaceAllString(fixed, "${1}o${2}")
	fixed = fiveInWordRe.ReplaceAllString(fixed, "${1}s${2}")
	fixed = oneInWordRe.ReplaceAllString(fixed, "${1}l${2}")

	fixed = strings.ToLower(fixed)
	fixed = removeDiacritics(fixed)

	return strings.TrimSpace(fixed)
}

// removeDiacritics strips combining marks so accented and plain spellings
// compare equal.
func removeDiacritics(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	if normalized, _, err := transform.String(t, s); err == nil {
		return normalized
	}
	return s
}
