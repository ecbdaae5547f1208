package result

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// DefaultFeedback is shown when the service sent no feedback text.
const DefaultFeedback = "✅ CV optimized successfully!"

const (
	feedbackKey          = "ai_feedback"
	optimizedDocumentKey = "optimized_cv"
	downloadURLKey       = "pdf_url"
	jobMatchesKey        = "job_matches"
)

// Normalize maps a raw response onto an Analysis. It never fails: every
// missing or mistyped field falls back to a documented default.
func Normalize(raw Raw) Analysis {
	return Analysis{
		FeedbackText: feedback(raw),
		DownloadURL:  stringField(raw, downloadURLKey),
		Jobs:         jobs(raw),
	}
}

// feedback prefers the top-level text, then the one nested in the optimized document.
func feedback(raw Raw) string {
	if text := stringField(raw, feedbackKey); text != "" {
		return text
	}

	if nested, ok := raw[optimizedDocumentKey].(map[string]any); ok {
		if text := stringField(nested, feedbackKey); text != "" {
			return text
		}
	}

	return DefaultFeedback
}

// stringField returns m[key] as sent when it is a non-empty string.
// Whitespace-only text still counts as present.
func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func jobs(raw Raw) []JobListing {
	entries, ok := raw[jobMatchesKey].([]any)
	if !ok {
		return []JobListing{}
	}

	listings := make([]JobListing, 0, len(entries))
	for _, entry := range entries {
		listings = append(listings, decodeJob(entry))
	}

	return listings
}

// decodeJob never drops an entry; anything that is not an object becomes a blank listing.
func decodeJob(entry any) JobListing {
	var job JobListing

	if _, ok := entry.(map[string]any); !ok {
		return job
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: scalarToString,
		Result:     &job,
		TagName:    "mapstructure",
	})
	if err != nil {
		return JobListing{}
	}

	if err := decoder.Decode(entry); err != nil {
		return JobListing{}
	}

	return job
}

// scalarToString renders numbers and booleans as text for string fields and
// blanks out nested objects or arrays.
func scalarToString(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	return coerceString(data), nil
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		return ""
	}
}
