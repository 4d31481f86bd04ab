package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"code_tracker/internal/model"
	"code_tracker/internal/pipeline"
)

var deepSpace = model.GameConfig{ID: "DeepSpace", Slug: "deepspace", Name: "恋与深空", SourceIDs: []string{"7484247626"}, Table: "DeepSpaceCode"}

func TestParseCodesArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      string
		wantSlug  string
		wantLimit int
		wantErr   bool
	}{
		{name: "slug only", args: "deepspace", wantSlug: "deepspace", wantLimit: 10},
		{name: "slug upper case", args: "DeepSpace", wantSlug: "deepspace", wantLimit: 10},
		{name: "with limit", args: "shining 3", wantSlug: "shining", wantLimit: 3},
		{name: "max limit", args: "shining 50", wantSlug: "shining", wantLimit: 50},
		{name: "limit too large", args: "shining 51", wantErr: true},
		{name: "limit zero", args: "shining 0", wantErr: true},
		{name: "limit not a number", args: "shining many", wantErr: true},
		{name: "empty", args: "  ", wantErr: true},
		{name: "too many args", args: "a 1 2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slug, limit, err := ParseCodesArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantSlug, slug); diff != "" {
				t.Errorf("slug mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantLimit, limit); diff != "" {
				t.Errorf("limit mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatDiscovery(t *testing.T) {
	tests := []struct {
		name string
		rec  model.CodeRecord
		want string
	}{
		{
			name: "full record",
			rec: model.CodeRecord{
				Key:    "ABC123",
				Reward: "钻石*100",
				URL:    "https://weibo.com/1/A",
				Start:  "2024/01/01 00:00:00",
				End:    "2024/12/31 23:59:59",
			},
			want: "[恋与深空] New code\n\nABC123\nReward: 钻石*100\nValid: 2024/01/01 00:00:00 – 2024/12/31 23:59:59\n\nhttps://weibo.com/1/A",
		},
		{
			name: "key only",
			rec:  model.CodeRecord{Key: "ABC123"},
			want: "[恋与深空] New code\n\nABC123",
		},
		{
			name: "end only",
			rec:  model.CodeRecord{Key: "K", End: "2024/12/31 23:59:59"},
			want: "[恋与深空] New code\n\nK\nValid: until 2024/12/31 23:59:59",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, FormatDiscovery(deepSpace, tt.rec)); diff != "" {
				t.Errorf("FormatDiscovery() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatCodeList(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 2, d, 12, 0, 0, 0, time.Local) }
	codes := []model.CodeRecord{
		{Key: "THIRD", Reward: "金币*5", DiscoveredAt: day(3), Start: "2024/02/03 00:00:00"},
		{Key: "SECOND", DiscoveredAt: day(2)},
		{Key: "FIRST", DiscoveredAt: day(1)},
	}

	got := FormatCodeList(deepSpace, codes, 2)
	want := "恋与深空 codes (2 of 3):\n\nTHIRD  2024-02-03\n   金币*5\n   valid from 2024/02/03 00:00:00\n\nSECOND  2024-02-02\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FormatCodeList() mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff("No codes for 恋与深空 yet.", FormatCodeList(deepSpace, nil, 10)); diff != "" {
		t.Errorf("empty list mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatGameList(t *testing.T) {
	got := FormatGameList([]model.GameConfig{
		{Slug: "infinity", Name: "无限暖暖"},
		deepSpace,
	})
	for _, want := range []string{"Tracked games:", "无限暖暖 — /codes infinity", "恋与深空 — /codes deepspace"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in:\n%s", want, got)
		}
	}
	if diff := cmp.Diff("No games are tracked.", FormatGameList(nil)); diff != "" {
		t.Errorf("empty list mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatScanResults(t *testing.T) {
	got := FormatScanResults([]pipeline.Result{
		{Game: "InfinityNikki", State: pipeline.Completed, Found: 2},
		{Game: "ShiningNikki", State: pipeline.Gated},
		{Game: "DeepSpace", State: pipeline.Failed},
	})
	want := "Scan finished:\n\nInfinityNikki: 2 new\nShiningNikki: checked less than an hour ago\nDeepSpace: failed"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FormatScanResults() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("Scan cancelled.", FormatScanResults(nil)); diff != "" {
		t.Errorf("empty results mismatch (-want +got):\n%s", diff)
	}
}
