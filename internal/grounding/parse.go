package grounding

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// ParseJSON decodes a generated object into out, trying the raw text, then
// the first fenced code block, then the slice from the first '{' to the
// last '}'. Each attempt decodes into a zero value, so out is only written
// on success.
func ParseJSON(text string, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return eris.New("grounding: out must be a non-nil pointer")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return eris.New("grounding: empty response")
	}

	candidates := []string{text}
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		candidates = append(candidates, text[start:end+1])
	}

	var lastErr error
	for _, c := range candidates {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(c), &obj); err != nil {
			lastErr = err
			continue
		}
		fresh := reflect.New(rv.Elem().Type())
		if err := json.Unmarshal([]byte(c), fresh.Interface()); err != nil {
			lastErr = err
			continue
		}
		rv.Elem().Set(fresh.Elem())
		return nil
	}
	return eris.Wrap(lastErr, "grounding: no JSON object in response")
}
