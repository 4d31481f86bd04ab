// Package extractor turns free-form post text into a structured redemption
// code record by delegating to a text-generation service.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"code_tracker/internal/model"
)

// Kind classifies an extraction failure.
type Kind string

// Failure kinds.
const (
	KindTransport Kind = "transport"
	KindMalformed Kind = "malformed_response"
)

// Failure is returned when no usable answer could be obtained for a text.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("extraction %s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf returns the failure kind of err, or "" if err is not a *Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// Extractor converts plain text into an ExtractedCode.
type Extractor interface {
	Extract(ctx context.Context, text string) (model.ExtractedCode, error)
}

// Client is a text-generation backend answering a single prompt.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const example = `{"key": "ABC", "reward": "钻石*100 + 金币*100", "start": "2020/01/01 00:00:00", "end": "2030/12/31 23:59:59"}`

// BuildPrompt wraps text in the fixed extraction instruction.
func BuildPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString("请从下面的微博正文中找出游戏兑换码、兑换码对应的福利内容，以及兑换的开始和截止时间。\n")
	sb.WriteString("只输出一个JSON对象，不要输出任何解释、前后缀或代码块标记，格式与示例完全一致：\n")
	sb.WriteString(example)
	sb.WriteString("\n要求：\n")
	sb.WriteString("- key 只填兑换码本身，例如 ABC，而不是“兑换码：ABC”；\n")
	sb.WriteString("- reward 为福利内容；\n")
	sb.WriteString("- start、end 使用 YYYY/MM/DD HH:MM:SS 格式，月、日、时、分、秒都补零为两位；\n")
	sb.WriteString("- 四个字段都必须出现且为字符串，找不到的字段填空字符串。\n\n")
	sb.WriteString("正文：\n")
	sb.WriteString(text)
	return sb.String()
}

// LLMExtractor implements Extractor on top of a Client.
type LLMExtractor struct {
	client  Client
	limiter *rate.Limiter
	timeout time.Duration
}

// New creates an LLMExtractor allowing perMinute calls per minute, each bounded by timeout.
func New(client Client, perMinute int, timeout time.Duration) *LLMExtractor {
	if perMinute < 1 {
		perMinute = 1
	}
	return &LLMExtractor{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1),
		timeout: timeout,
	}
}

// Extract asks the backend for the code in text and validates the answer.
func (e *LLMExtractor) Extract(ctx context.Context, text string) (model.ExtractedCode, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return model.ExtractedCode{}, &Failure{Kind: KindTransport, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	raw, err := e.client.Complete(callCtx, BuildPrompt(text))
	if err != nil {
		return model.ExtractedCode{}, &Failure{Kind: KindTransport, Err: err}
	}
	return ParseResponse(raw)
}
