// Package registry holds the static, process-wide table of tracked games.
package registry

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"code_tracker/internal/model"
)

// DefaultTriggerPhrase marks a post as a candidate for extraction.
const DefaultTriggerPhrase = "兑换码"

//go:embed games.yaml
var defaultGames []byte

type file struct {
	TriggerPhrase string             `yaml:"trigger_phrase"`
	Games         []model.GameConfig `yaml:"games" validate:"required,min=1,dive"`
}

// Registry is an immutable index of game configurations.
// It is safe for concurrent use because nothing mutates it after Parse.
type Registry struct {
	trigger string
	games   []model.GameConfig
	byID    map[string]model.GameConfig
	bySlug  map[string]model.GameConfig
}

// Default returns the registry embedded in the binary.
func Default() (*Registry, error) {
	return Parse(defaultGames)
}

// Load reads a registry from a YAML file. An empty path yields the default registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("read games file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML registry document.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse games: %w", err)
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, fmt.Errorf("validate games: %w", err)
	}

	r := &Registry{
		trigger: strings.TrimSpace(f.TriggerPhrase),
		byID:    make(map[string]model.GameConfig, len(f.Games)),
		bySlug:  make(map[string]model.GameConfig, len(f.Games)),
	}
	if r.trigger == "" {
		r.trigger = DefaultTriggerPhrase
	}

	tables := make(map[string]bool, len(f.Games))
	for _, g := range f.Games {
		if _, dup := r.byID[g.ID]; dup {
			return nil, fmt.Errorf("duplicate game id %q", g.ID)
		}
		if _, dup := r.bySlug[g.Slug]; dup {
			return nil, fmt.Errorf("duplicate game slug %q", g.Slug)
		}
		if tables[g.Table] {
			return nil, fmt.Errorf("table %q used by more than one game", g.Table)
		}
		tables[g.Table] = true
		if g.Name == "" {
			g.Name = g.ID
		}
		g.SourceIDs = append([]string(nil), g.SourceIDs...)
		r.games = append(r.games, g)
		r.byID[g.ID] = g
		r.bySlug[g.Slug] = g
	}
	return r, nil
}

// TriggerPhrase returns the phrase a post must contain to be sent to the extractor.
func (r *Registry) TriggerPhrase() string {
	return r.trigger
}

// Games returns the configured games in file order.
func (r *Registry) Games() []model.GameConfig {
	out := make([]model.GameConfig, len(r.games))
	copy(out, r.games)
	return out
}

// Game looks up a game by its ID.
func (r *Registry) Game(id string) (model.GameConfig, bool) {
	g, ok := r.byID[id]
	return g, ok
}

// BySlug looks up a game by its public short name.
func (r *Registry) BySlug(slug string) (model.GameConfig, bool) {
	g, ok := r.bySlug[strings.ToLower(slug)]
	return g, ok
}
