package reasoner

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var responseMarker = regexp.MustCompile(`(?s)\[\[ ## response ## \]\](.*?)(?:\[\[ ## completed ## \]\]|$)`)

// extractResponse pulls the user facing reply out of a model completion.
// Strategies in order: [[ ## response ## ]] markers, a JSON "response" field,
// the trimmed raw text.
func extractResponse(text string) string {
	if m := responseMarker.FindStringSubmatch(text); m != nil {
		if s := strings.TrimSpace(m[1]); s != "" {
			return s
		}
	}

	if obj := jsonObject(text); obj != "" {
		if r := gjson.Get(obj, "response"); r.Exists() && r.Type == gjson.String && r.String() != "" {
			return r.String()
		}
	}

	return strings.TrimSpace(text)
}

// jsonObject returns the outermost {...} span of text when it is valid JSON.
func jsonObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	obj := text[start : end+1]
	if !gjson.Valid(obj) {
		return ""
	}
	return obj
}
