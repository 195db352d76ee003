package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/interview"
)

type questionsPayload struct {
	Questions []string `mapstructure:"questions"`
}

// Assessment keys are decoded one at a time so that a malformed field does not
// discard the others.
const (
	keyRating   = "rating"
	keyVerdict  = "verdict"
	keyFeedback = "detailed_feedback"
)

// decodeStrict unmarshals model output into out. Type mismatches fail; there is
// no weak typing and no text scanning. Unknown keys are returned for logging.
func decodeStrict(raw string, out any) ([]string, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	return decodeValue(data, out)
}

func decodeObject(raw string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrUnparseable, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ai.ErrUnparseable)
	}
	return data, nil
}

func decodeValue(input, out any) ([]string, error) {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:   out,
		Metadata: &md,
		TagName:  "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("build decoder: %w", err)
	}

	if err := decoder.Decode(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrUnparseable, err)
	}

	return md.Unused, nil
}

func parseQuestions(raw string) ([]string, []string, error) {
	var payload questionsPayload
	unused, err := decodeStrict(raw, &payload)
	if err != nil {
		return nil, nil, err
	}
	if len(payload.Questions) == 0 {
		return nil, unused, fmt.Errorf("%w: no questions", ai.ErrUnparseable)
	}
	return payload.Questions, unused, nil
}

// parseAssessment fills missing fields with defaults. A malformed field gets
// its own default and is reported in invalid while the other fields are kept.
// Only output that is not a JSON object fails as a whole.
func parseAssessment(raw string) (assessment *interview.Assessment, unused []string, invalid error, err error) {
	data, err := decodeObject(raw)
	if err != nil {
		return nil, nil, nil, err
	}

	var problems []error
	result := interview.Assessment{Rating: interview.NeutralRating}

	for key, value := range data {
		switch key {
		case keyRating, keyVerdict, keyFeedback:
		default:
			unused = append(unused, key)
			continue
		}
		if value == nil {
			continue
		}

		switch key {
		case keyRating:
			var rating float64
			if _, err := decodeValue(value, &rating); err != nil {
				problems = append(problems, fmt.Errorf("%s: %w", key, err))
				continue
			}
			r, err := clampRating(rating)
			if err != nil {
				problems = append(problems, fmt.Errorf("%s: %w", key, err))
				continue
			}
			result.Rating = r
		case keyVerdict:
			var verdict string
			if _, err := decodeValue(value, &verdict); err != nil {
				problems = append(problems, fmt.Errorf("%s: %w", key, err))
				continue
			}
			result.Verdict = strings.TrimSpace(verdict)
		case keyFeedback:
			var feedback interview.Feedback
			nested, err := decodeValue(value, &feedback)
			if err != nil {
				problems = append(problems, fmt.Errorf("%s: %w", key, err))
				result.Feedback = ai.UnparseableAssessment().Feedback
				continue
			}
			for _, k := range nested {
				unused = append(unused, key+"."+k)
			}
			result.Feedback = feedback
		}
	}

	sort.Strings(unused)
	normalized := result.Normalize()
	return &normalized, unused, errors.Join(problems...), nil
}

// clampRating rounds a model rating into [MinRating, MaxRating] before any
// integer conversion, so out-of-range magnitudes cannot overflow.
func clampRating(v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: rating is not a finite number", ai.ErrUnparseable)
	}
	v = math.Max(interview.MinRating, math.Min(interview.MaxRating, math.Round(v)))
	return int(v), nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
