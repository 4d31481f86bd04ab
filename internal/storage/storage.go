// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"code_tracker/internal/model"
)

// ErrUnknownGame is returned for games that were never registered with EnsureGame.
var ErrUnknownGame = errors.New("unknown game")

// Storage is the interface for all persistence operations.
type Storage interface {
	EnsureGame(ctx context.Context, game model.GameConfig) error

	Checkpoint(ctx context.Context, game string) (time.Time, error)
	AdvanceCheckpoint(ctx context.Context, game string, at time.Time) error

	CodeExists(ctx context.Context, game, key string) (bool, error)
	InsertCode(ctx context.Context, game string, rec *model.CodeRecord) (bool, error)
	ListCodes(ctx context.Context, game string) ([]model.CodeRecord, error)

	Close() error
}
