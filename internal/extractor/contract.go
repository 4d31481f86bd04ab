package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/text/width"

	"code_tracker/internal/model"
)

const responseSchema = `{
  "type": "object",
  "required": ["key", "reward", "start", "end"],
  "properties": {
    "key":    {"type": "string"},
    "reward": {"type": "string"},
    "start":  {"type": "string"},
    "end":    {"type": "string"}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(responseSchema)

// ParseResponse validates a raw service answer against the extraction contract.
// Any violation is reported as a *Failure of KindMalformed.
func ParseResponse(raw string) (model.ExtractedCode, error) {
	doc, err := decodeObject(cleanJSONBlock(raw))
	if err != nil {
		return model.ExtractedCode{}, &Failure{Kind: KindMalformed, Err: err}
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return model.ExtractedCode{}, &Failure{Kind: KindMalformed, Err: fmt.Errorf("validate: %w", err)}
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return model.ExtractedCode{}, &Failure{Kind: KindMalformed, Err: errors.New(strings.Join(msgs, "; "))}
	}

	return model.ExtractedCode{
		Key:    normalizeKey(doc["key"].(string)),
		Reward: stripSpaces(doc["reward"].(string)),
		Start:  strings.TrimSpace(doc["start"].(string)),
		End:    strings.TrimSpace(doc["end"].(string)),
	}, nil
}

// decodeObject requires exactly one JSON object and nothing after it.
func decodeObject(text string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if doc == nil {
		return nil, errors.New("response is not a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON object")
	}
	return doc, nil
}

// cleanJSONBlock removes markdown code fences some models add despite instructions.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// normalizeKey folds full-width letters and digits, which are common in
// Chinese posts, to their ASCII forms.
func normalizeKey(key string) string {
	return strings.TrimSpace(width.Fold.String(key))
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
