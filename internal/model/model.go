// Package model defines the domain types used across the application.
package model

import "time"

// GameConfig describes one tracked game: where its posts come from and
// which table its codes are stored in.
type GameConfig struct {
	ID        string   `yaml:"id" validate:"required,alphanum"`
	Slug      string   `yaml:"slug" validate:"required,alphanum,lowercase"`
	Name      string   `yaml:"name"`
	SourceIDs []string `yaml:"source_ids" validate:"required,min=1,dive,required"`
	Table     string   `yaml:"table" validate:"required,alphanum"`
}

// Checkpoint is the per-game watermark of the last scan that found new codes.
type Checkpoint struct {
	Game          string
	LastCheckTime time.Time
}

// RawFeedItem is a single feed entry as returned by the fetcher.
// PublishedAt is nil when the entry carries no parseable date.
type RawFeedItem struct {
	PublishedAt *time.Time
	Description string
	Link        string
}

// ExtractedCode is the structured answer of the extraction service.
// An empty Key means the service found no code in the text.
type ExtractedCode struct {
	Key    string
	Reward string
	Start  string
	End    string
}

// CodeRecord is a persisted redemption code.
type CodeRecord struct {
	ID           int64
	Key          string
	Reward       string
	DiscoveredAt time.Time
	URL          string
	Start        string
	End          string
}

// Event is broadcast to subscribers when a new code is stored.
type Event struct {
	ID   string
	Game string
	Slug string
	Key  string
	At   time.Time
}
