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

// Package classifier assigns collection tags to OCR text using a fixed
// priority cascade: Messages, Code, Design, Receipts, Browser, Terminal,
// Errors, Documents, Images. The first strong match wins outright except
// for Browser and Errors, which can combine with a later match.
package classifier

import (
	"regexp"
	"strings"
	"unicode"
)

// Collection tag names, in cascade priority order.
const (
	TagMessages  = "Messages"
	TagCode      = "Code"
	TagDesign    = "Design"
	TagReceipts  = "Receipts"
	TagBrowser   = "Browser"
	TagTerminal  = "Terminal"
	TagErrors    = "Errors"
	TagDocuments = "Documents"
	TagImages    = "Images"
)

var (
	time12hRe      = regexp.MustCompile(`\d{1,2}:\d{2}\s*(?:AM|PM|am|pm)`)
	time24hRe      = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)
	namePrefixRe   = regexp.MustCompile(`^[A-Z][a-z]+:|\b(?:You|Me|I):`)
	lineTimeRe     = regexp.MustCompile(`\d{1,2}:\d{2}`)
	indentRe       = regexp.MustCompile(`(?m)^    `)
	hexColorRe     = regexp.MustCompile(`#[0-9A-Fa-f]{6}`)
	priceRe        = regexp.MustCompile(`\$\d+\.\d{2}`)
	slashDateRe    = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`)
	urlRe          = regexp.MustCompile(`https?://\S+`)
	domainRe       = regexp.MustCompile(`\b[a-z0-9-]+\.[a-z]{2,}\b`)
	numberedItemRe = regexp.MustCompile(`(?m)^\d+\.\s`)
)

var (
	messageAppTerms = []string{
		"imessage", "slack", "discord", "whatsapp", "telegram", "signal",
		"messenger", "facebook messenger", "group chat", "direct message",
		"dm", "thread", "channel", "conversation", "chat",
	}
	readReceiptTerms = []string{
		"read", "delivered", "sent", "seen", "typing", "online", "offline",
		"last seen",
	}
	chatTerms = []string{
		"lmao", "lol", "omg", "btw", "imo", "tbh", "haha", "hahaha",
		"lmaoo", "lmfao", "fr", "ngl", "wyd", "wbu", "ttyl", "brb",
		"thanks", "thank you", "np", "yw", "gg", "gl", "hf", "ikr",
		"smh", "fyi", "asap", "idk", "ik", "yeah", "yep",
		"nah", "nope", "sure", "ok", "okay", "k", "kk", "got it",
		"sounds good", "cool", "nice", "awesome", "perfect",
	}
	greetingTerms = []string{
		"hey", "hi", "hello", "sup", "what's up", "how are you",
		"how's it going", "what's going on", "how's everything",
		"how have you been", "long time", "miss you",
	}
	dateHeaderTerms = []string{
		"today", "yesterday", "just now", "this week", "this month",
		"monday", "tuesday", "wednesday", "thursday", "friday",
		"saturday", "sunday",
	}
	codeKeywordTerms = []string{
		"function", "const", "let", "var", "class", "import", "export",
		"def", "return", "async", "await", "fn", "impl", "struct",
	}
	codeSymbols     = []string{"{", "}", "=>", "->", "::", "()"}
	designToolTerms = []string{"figma", "sketch", "adobe", "photoshop", "illustrator"}
	designTerms     = []string{
		"px", "rem", "font", "color", "background", "border", "padding",
		"margin",
	}
	receiptTerms = []string{
		"total", "subtotal", "tax", "receipt", "invoice", "paid", "order",
	}
	browserUITerms = []string{
		"address bar", "bookmarks", "back", "forward", "refresh", "home",
		"chrome", "safari", "firefox", "edge", "brave", "opera",
		"new tab", "close tab", "search", "omnibox", "url bar",
	}
	terminalCommands = []string{
		"cd ", "ls ", "git ", "npm ", "cargo ", "python ", "node ",
	}
	errorTerms = []string{
		"error", "exception", "failed", "panic", "segfault", "undefined",
		"traceback", "stack trace",
	}
	documentTerms = []string{
		"chapter", "section", "paragraph", "article", "document",
		"page", "heading", "title", "author", "date", "published",
		"abstract", "introduction", "conclusion", "references",
		"table of contents", "bibliography",
	}
	formalTerms = []string{
		"therefore", "however", "furthermore", "moreover",
		"in conclusion", "in summary",
	}
	overlayTerms = []string{
		"screenshot", "image", "photo", "picture", "camera", "gallery",
		"album", "instagram", "snapchat", "filters",
	}
)

// Classify returns the collection tags for a piece of OCR text. Empty or
// whitespace-only text classifies as nothing.
//
//nolint:gocyclo,funlen // the cascade reads best as one top-to-bottom pass
func Classify(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	lower := strings.ToLower(text)
	words := wordSet(lower)
	wordCount := len(strings.Fields(trimmed))
	charCount := len(trimmed)

	// Messages signals. Bubbles are the primary indicator: several short
	// conversational lines, name prefixes, or per-line timestamps.
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	shortLines := 0
	namePrefixes := 0
	timestampLines := 0
	for _, l := range lines {
		if len(l) < 120 {
			shortLines++
		}
		if namePrefixRe.MatchString(l) {
			namePrefixes++
		}
		if lineTimeRe.MatchString(l) {
			timestampLines++
		}
	}
	anyTimestamp := time12hRe.MatchString(text) || time24hRe.MatchString(text)
	messageApps := matchesAny(lower, words, messageAppTerms)
	readReceipts := matchesAny(lower, words, readReceiptTerms)
	chatWords := matchesAny(lower, words, chatTerms)
	questions := strings.Count(text, "?") >= 1
	greetings := matchesAny(lower, words, greetingTerms)
	dateHeaders := matchesAny(lower, words, dateHeaderTerms)
	conversationShape := strings.Count(text, ":") > 2 &&
		(strings.Count(text, "\n") > 1 || shortLines > 1)
	emoticons := strings.Contains(text, ":)") || strings.Contains(text, ":(") ||
		strings.Contains(text, ":D") || strings.Contains(text, "<3") ||
		strings.Contains(text, ":P") || strings.Contains(text, ";)")

	// Several short lines only count as bubbles alongside some
	// conversational signal, otherwise every multi-line snippet of code
	// or prose would land here.
	conversational := chatWords || emoticons || questions || greetings
	bubbles := (shortLines >= 3 && (namePrefixes >= 1 || timestampLines >= 1 || conversational)) ||
		(shortLines >= 2 && namePrefixes >= 1) ||
		(shortLines >= 2 && timestampLines >= 1) ||
		namePrefixes >= 2 ||
		(timestampLines >= 2 && shortLines >= 1)

	if bubbles {
		return []string{TagMessages}
	}
	if anyTimestamp || messageApps || readReceipts ||
		(chatWords && (questions || conversationShape)) ||
		(questions && greetings) ||
		(dateHeaders && anyTimestamp) ||
		(emoticons && questions) {
		return []string{TagMessages}
	}

	// Code: a keyword plus structural evidence.
	codeKeywords := matchesAny(lower, words, codeKeywordTerms)
	codeSymbolHit := false
	for _, sym := range codeSymbols {
		if strings.Contains(text, sym) {
			codeSymbolHit = true
			break
		}
	}
	codeComments := strings.Contains(text, "//") ||
		strings.Contains(text, "/*") || strings.Contains(text, "#")
	if codeKeywords && (codeSymbolHit || indentRe.MatchString(text) || codeComments) {
		return []string{TagCode}
	}

	// Design: hex colors, tool names, or CSS-ish terms near "design".
	if hexColorRe.MatchString(text) ||
		matchesAny(lower, words, designToolTerms) ||
		(matchesAny(lower, words, designTerms) && strings.Contains(lower, "design")) {
		return []string{TagDesign}
	}

	// Receipts: dollar amounts plus billing words or a date.
	if priceRe.MatchString(text) &&
		(matchesAny(lower, words, receiptTerms) || slashDateRe.MatchString(text)) {
		return []string{TagReceipts}
	}

	// Browser combines with Terminal or Errors below instead of winning
	// outright.
	var tags []string
	hasURLs := urlRe.MatchString(text)
	hasWWW := strings.Contains(text, "www.") || strings.Contains(text, "http")
	browserUI := matchesAny(lower, words, browserUITerms)
	navGlyphs := strings.ContainsAny(text, "←→↻⌂") ||
		strings.Contains(lower, "navigation") || strings.Contains(lower, "menu")
	manyDomains := len(domainRe.FindAllString(lower, 3)) > 2
	browserShape := strings.Contains(lower, "://") ||
		(hasURLs && wordCount > 20) ||
		(manyDomains && hasURLs)
	if hasURLs || hasWWW || browserUI || navGlyphs || browserShape {
		tags = append(tags, TagBrowser)
	}

	prompts := strings.Contains(text, "$ ") || strings.Contains(text, "~ ") ||
		strings.Contains(text, "> ")
	commands := false
	for _, cmd := range terminalCommands {
		if strings.Contains(text, cmd) {
			commands = true
			break
		}
	}
	if prompts || commands {
		return append(tags, TagTerminal)
	}

	stackTrace := (strings.Contains(text, "at ") && strings.Contains(text, ".js:")) ||
		strings.Contains(text, "Traceback")
	if matchesAny(lower, words, errorTerms) || stackTrace {
		tags = append(tags, TagErrors)
	}

	// Documents: substantial structured prose, and only when nothing above
	// matched and the text does not smell like a conversation.
	likelyMessage := anyTimestamp || messageApps || readReceipts ||
		chatWords || bubbles || dateHeaders || questions || greetings
	if len(tags) == 0 && !likelyMessage {
		paragraphs := strings.Count(text, "\n\n") > 1 || strings.Count(text, "\n") > 5
		sentences := strings.Count(text, ".") > 3 ||
			strings.Count(text, "!") > 1 || strings.Count(text, "?") > 1
		docTerms := matchesAny(lower, words, documentTerms)
		listShape := strings.Contains(text, "•") || strings.Contains(text, "- ") ||
			numberedItemRe.MatchString(text) ||
			strings.Count(text, "\n- ") > 2 || strings.Count(text, "\n• ") > 2
		formal := matchesAny(lower, words, formalTerms)

		plainText := wordCount > 50 &&
			(paragraphs || sentences) &&
			!hasURLs && !codeKeywords && !prompts &&
			(docTerms || listShape || formal)
		if plainText || (wordCount > 100 && (docTerms || listShape) && !questions) {
			return []string{TagDocuments}
		}
	}

	// Images fallback: barely any text, UI overlay chrome, or OCR noise.
	if len(tags) == 0 {
		minimal := charCount < 50 || wordCount < 10
		overlay := wordCount < 20 && matchesAny(lower, words, overlayTerms)
		alnum := 0
		upper := 0
		for _, r := range trimmed {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				alnum++
			}
			if unicode.IsUpper(r) {
				upper++
			}
		}
		noise := charCount < 30 && (alnum < 15 || upper > charCount/2)
		if minimal || overlay || noise {
			tags = append(tags, TagImages)
		}
	}

	return tags
}

// matchesAny reports whether any term occurs in the text. Single-word terms
// must match a whole token so that substrings like "read" inside "thread"
// do not fire; multi-word terms match as substrings of the lowered text.
func matchesAny(lower string, words map[string]struct{}, terms []string) bool {
	for _, term := range terms {
		if strings.ContainsRune(term, ' ') {
			if strings.Contains(lower, term) {
				return true
			}
			continue
		}
		if _, ok := words[term]; ok {
			return true
		}
	}
	return false
}

func wordSet(lower string) map[string]struct{} {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
