// Package filter implements the novelty filter that decides which feed items
// are new relative to a game's checkpoint and worth sending to the extractor.
package filter

import (
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"code_tracker/internal/model"
)

var stripPolicy = newStripPolicy()

func newStripPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// NormalizeTimestamp renders an item's publish time in the canonical layout.
// Items without a date get the sentinel instead of being dropped.
func NormalizeTimestamp(t *time.Time) string {
	return model.FormatTime(t)
}

// IsNew reports whether an item with the given normalized timestamp should be
// considered. Items strictly earlier than the checkpoint are skipped; an
// unparseable timestamp is treated as the sentinel.
func IsNew(normalized string, checkpoint time.Time) bool {
	ts, err := model.ParseTime(normalized)
	if err != nil {
		ts = model.Sentinel()
	}
	return !ts.Before(checkpoint.Truncate(time.Second))
}

// PlainText removes markup from a feed description and collapses whitespace.
func PlainText(description string) string {
	text := html.UnescapeString(stripPolicy.Sanitize(description))
	return strings.Join(strings.Fields(text), " ")
}

// IsEligible reports whether plain text mentions the trigger phrase.
// An empty phrase never matches.
func IsEligible(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(text, phrase)
}
