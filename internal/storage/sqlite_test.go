package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"code_tracker/internal/model"
)

var ignoreCodeID = cmpopts.IgnoreFields(model.CodeRecord{}, "ID")

var (
	gameA = model.GameConfig{ID: "Alpha", Slug: "alpha", SourceIDs: []string{"1"}, Table: "AlphaCode"}
	gameB = model.GameConfig{ID: "Beta", Slug: "beta", SourceIDs: []string{"2"}, Table: "BetaCode"}
)

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	for _, g := range []model.GameConfig{gameA, gameB} {
		if err := s.EnsureGame(context.Background(), g); err != nil {
			t.Fatalf("ensure game %s: %v", g.ID, err)
		}
	}
	return s
}

func at(s string) time.Time {
	t, err := model.ParseTime(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestEnsureGame(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	// Idempotent.
	if err := s.EnsureGame(ctx, gameA); err != nil {
		t.Fatalf("ensure again: %v", err)
	}

	bad := model.GameConfig{ID: "Bad", Table: `x"; DROP TABLE checkpoints; --`}
	if err := s.EnsureGame(ctx, bad); err == nil {
		t.Fatal("expected error for invalid table name")
	}
}

func TestCheckpoint(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	got, err := s.Checkpoint(ctx, gameA.ID)
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if !got.Equal(model.Sentinel()) {
		t.Errorf("expected sentinel checkpoint, got %v", got)
	}

	steps := []struct {
		name string
		to   string
		want string
	}{
		{name: "advance", to: "2024-06-01 12:00:00", want: "2024-06-01 12:00:00"},
		{name: "advance further", to: "2024-06-02 08:30:00", want: "2024-06-02 08:30:00"},
		{name: "backwards is ignored", to: "2024-05-01 00:00:00", want: "2024-06-02 08:30:00"},
	}
	for _, st := range steps {
		t.Run(st.name, func(t *testing.T) {
			if err := s.AdvanceCheckpoint(ctx, gameA.ID, at(st.to)); err != nil {
				t.Fatalf("advance: %v", err)
			}
			got, err := s.Checkpoint(ctx, gameA.ID)
			if err != nil {
				t.Fatalf("checkpoint: %v", err)
			}
			if diff := cmp.Diff(st.want, model.FormatTime(&got)); diff != "" {
				t.Errorf("checkpoint mismatch (-want +got):\n%s", diff)
			}
		})
	}

	other, err := s.Checkpoint(ctx, gameB.ID)
	if err != nil {
		t.Fatalf("checkpoint b: %v", err)
	}
	if !other.Equal(model.Sentinel()) {
		t.Errorf("advancing one game must not move another, got %v", other)
	}
}

func TestInsertCode(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	rec := model.CodeRecord{
		Key:          "ABC123",
		Reward:       "钻石*100",
		DiscoveredAt: at("2024-02-10 12:00:00"),
		URL:          "https://weibo.com/1/N1",
		Start:        "2024/01/01 00:00:00",
		End:          "2024/12/31 23:59:59",
	}

	tests := []struct {
		name string
		game string
		rec  model.CodeRecord
		want bool
	}{
		{name: "first sighting", game: gameA.ID, rec: rec, want: true},
		{name: "duplicate key", game: gameA.ID, rec: rec, want: false},
		{name: "same key other game", game: gameB.ID, rec: rec, want: true},
		{name: "empty key inserted", game: gameA.ID, rec: model.CodeRecord{DiscoveredAt: rec.DiscoveredAt}, want: true},
		{name: "empty key inserted again", game: gameA.ID, rec: model.CodeRecord{DiscoveredAt: rec.DiscoveredAt}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.rec
			got, err := s.InsertCode(ctx, tt.game, &r)
			if err != nil {
				t.Fatalf("insert: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("InsertCode mismatch (-want +got):\n%s", diff)
			}
			if got && r.ID == 0 {
				t.Error("expected ID to be populated")
			}
		})
	}

	exists, err := s.CodeExists(ctx, gameA.ID, "ABC123")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Error("expected ABC123 to exist")
	}
	exists, err = s.CodeExists(ctx, gameA.ID, "NOPE")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Error("expected NOPE to be absent")
	}

	codes, err := s.ListCodes(ctx, gameA.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var keyed int
	for _, c := range codes {
		if c.Key == "ABC123" {
			keyed++
			if diff := cmp.Diff(rec, c, ignoreCodeID); diff != "" {
				t.Errorf("stored record mismatch (-want +got):\n%s", diff)
			}
		}
	}
	if diff := cmp.Diff(1, keyed); diff != "" {
		t.Errorf("key count mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(3, len(codes)); diff != "" {
		t.Errorf("row count mismatch (-want +got):\n%s", diff)
	}
}

func TestListCodesOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	for _, r := range []model.CodeRecord{
		{Key: "MID", DiscoveredAt: at("2024-03-01 00:00:00")},
		{Key: "OLD", DiscoveredAt: at("2024-01-01 00:00:00")},
		{Key: "NEW", DiscoveredAt: at("2024-05-01 00:00:00")},
	} {
		if _, err := s.InsertCode(ctx, gameA.ID, &r); err != nil {
			t.Fatalf("insert %s: %v", r.Key, err)
		}
	}

	codes, err := s.ListCodes(ctx, gameA.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var keys []string
	for _, c := range codes {
		keys = append(keys, c.Key)
	}
	if diff := cmp.Diff([]string{"NEW", "MID", "OLD"}, keys); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	empty, err := s.ListCodes(ctx, gameB.ID)
	if err != nil {
		t.Fatalf("list b: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no codes for other game, got %d", len(empty))
	}
}

func TestUnknownGame(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	checks := map[string]error{}
	_, checks["checkpoint"] = s.Checkpoint(ctx, "Nope")
	checks["advance"] = s.AdvanceCheckpoint(ctx, "Nope", time.Now())
	_, checks["exists"] = s.CodeExists(ctx, "Nope", "K")
	_, checks["insert"] = s.InsertCode(ctx, "Nope", &model.CodeRecord{Key: "K"})
	_, checks["list"] = s.ListCodes(ctx, "Nope")

	for op, err := range checks {
		if !errors.Is(err, ErrUnknownGame) {
			t.Errorf("%s: expected ErrUnknownGame, got %v", op, err)
		}
	}
}

func TestClosedDatabase(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	_ = s.Close()

	if _, err := s.InsertCode(ctx, gameA.ID, &model.CodeRecord{Key: "K"}); err == nil {
		t.Error("expected error on closed database")
	}
}
