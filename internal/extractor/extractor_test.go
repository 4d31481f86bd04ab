package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/generative-ai-go/genai"

	"code_tracker/internal/model"
)

type stubClient struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubClient) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     model.ExtractedCode
		wantKind Kind
	}{
		{
			name: "valid answer",
			raw:  `{"key":"ABC123","reward":"钻石*100","start":"2024/01/01 00:00:00","end":"2024/12/31 23:59:59"}`,
			want: model.ExtractedCode{Key: "ABC123", Reward: "钻石*100", Start: "2024/01/01 00:00:00", End: "2024/12/31 23:59:59"},
		},
		{
			name: "reward whitespace stripped",
			raw:  `{"key":"K","reward":" 钻石*100 + 金币*100　","start":"","end":""}`,
			want: model.ExtractedCode{Key: "K", Reward: "钻石*100+金币*100"},
		},
		{
			name: "full width key folded",
			raw:  `{"key":" ＮＩＫＫＩ２０２４ ","reward":"","start":"","end":""}`,
			want: model.ExtractedCode{Key: "NIKKI2024"},
		},
		{
			name: "empty key is not a failure",
			raw:  `{"key":"","reward":"","start":"","end":""}`,
			want: model.ExtractedCode{},
		},
		{
			name: "code fence tolerated",
			raw:  "```json\n{\"key\":\"A\",\"reward\":\"r\",\"start\":\"s\",\"end\":\"e\"}\n```",
			want: model.ExtractedCode{Key: "A", Reward: "r", Start: "s", End: "e"},
		},
		{
			name: "extra fields ignored",
			raw:  `{"key":"A","reward":"r","start":"s","end":"e","note":"x"}`,
			want: model.ExtractedCode{Key: "A", Reward: "r", Start: "s", End: "e"},
		},
		{
			name:     "missing field",
			raw:      `{"key":"A","reward":"r","start":"s"}`,
			wantKind: KindMalformed,
		},
		{
			name:     "non string field",
			raw:      `{"key":123,"reward":"r","start":"s","end":"e"}`,
			wantKind: KindMalformed,
		},
		{
			name:     "null field",
			raw:      `{"key":null,"reward":"r","start":"s","end":"e"}`,
			wantKind: KindMalformed,
		},
		{
			name:     "not json",
			raw:      `兑换码是 ABC123`,
			wantKind: KindMalformed,
		},
		{
			name:     "narration after object",
			raw:      `{"key":"A","reward":"r","start":"s","end":"e"} 希望对你有帮助`,
			wantKind: KindMalformed,
		},
		{
			name:     "array instead of object",
			raw:      `[{"key":"A","reward":"r","start":"s","end":"e"}]`,
			wantKind: KindMalformed,
		},
		{
			name:     "json null",
			raw:      `null`,
			wantKind: KindMalformed,
		},
		{
			name:     "empty response",
			raw:      ``,
			wantKind: KindMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.raw)
			if tt.wantKind != "" {
				if err == nil {
					t.Fatalf("expected %s failure, got %+v", tt.wantKind, got)
				}
				if diff := cmp.Diff(tt.wantKind, KindOf(err)); diff != "" {
					t.Errorf("failure kind mismatch (-want +got):\n%s", diff)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseResponse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLLMExtractor(t *testing.T) {
	t.Run("valid reply", func(t *testing.T) {
		client := &stubClient{reply: `{"key":"ABC123","reward":"钻石*100","start":"2024/01/01 00:00:00","end":"2024/12/31 23:59:59"}`}
		e := New(client, 6000, time.Second)

		got, err := e.Extract(context.Background(), "兑换码：ABC123")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff("ABC123", got.Key); diff != "" {
			t.Errorf("key mismatch (-want +got):\n%s", diff)
		}
		if len(client.prompts) != 1 || !strings.HasSuffix(client.prompts[0], "兑换码：ABC123") {
			t.Errorf("prompt should end with the source text, got %q", client.prompts)
		}
	})

	t.Run("backend error is transport failure", func(t *testing.T) {
		e := New(&stubClient{err: errors.New("503 service unavailable")}, 6000, time.Second)
		_, err := e.Extract(context.Background(), "text")
		if diff := cmp.Diff(KindTransport, KindOf(err)); diff != "" {
			t.Errorf("failure kind mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("malformed reply", func(t *testing.T) {
		e := New(&stubClient{reply: "sorry, I cannot help"}, 6000, time.Second)
		_, err := e.Extract(context.Background(), "text")
		if diff := cmp.Diff(KindMalformed, KindOf(err)); diff != "" {
			t.Errorf("failure kind mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		client := &stubClient{reply: `{}`}
		e := New(client, 6000, time.Second)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := e.Extract(ctx, "text")
		if diff := cmp.Diff(KindTransport, KindOf(err)); diff != "" {
			t.Errorf("failure kind mismatch (-want +got):\n%s", diff)
		}
		if len(client.prompts) != 0 {
			t.Errorf("expected no backend call, got %d", len(client.prompts))
		}
	})
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("正文内容")
	for _, want := range []string{`"key"`, `"reward"`, `"start"`, `"end"`, "YYYY/MM/DD HH:MM:SS", "正文内容"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestKindOf(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), &Failure{Kind: KindMalformed, Err: errors.New("bad")})
	if diff := cmp.Diff(KindMalformed, KindOf(wrapped)); diff != "" {
		t.Errorf("KindOf mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Kind(""), KindOf(errors.New("plain"))); diff != "" {
		t.Errorf("KindOf mismatch (-want +got):\n%s", diff)
	}
}

func TestTextFromResponse(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr bool
	}{
		{
			name: "joins text parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"key":`), genai.Text(`"A"}`)}},
			}}},
			want: `{"key":"A"}`,
		},
		{name: "nil response", resp: nil, wantErr: true},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, wantErr: true},
		{
			name:    "no content",
			resp:    &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := textFromResponse(tt.resp)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("text mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
