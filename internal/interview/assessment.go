package interview

import "strings"

const (
	MinRating     = 1
	MaxRating     = 10
	NeutralRating = 5

	DefaultVerdict = "Review the transcript for a complete assessment."
)

// Feedback is the structured part of a final assessment.
type Feedback struct {
	Strengths  []string `json:"strengths,omitempty" mapstructure:"strengths"`
	Weaknesses []string `json:"weaknesses,omitempty" mapstructure:"weaknesses"`
	FitForRole string   `json:"fit_for_role,omitempty" mapstructure:"fit_for_role"`
	Error      string   `json:"error,omitempty" mapstructure:"error"`
}

// Assessment is the scored outcome of a completed interview.
type Assessment struct {
	Rating   int      `json:"rating"`
	Verdict  string   `json:"verdict"`
	Feedback Feedback `json:"detailed_feedback"`
}

// Normalize clamps the rating into [MinRating, MaxRating] and fills an empty verdict.
// A zero rating is treated as unset and becomes NeutralRating.
func (a Assessment) Normalize() Assessment {
	switch {
	case a.Rating == 0:
		a.Rating = NeutralRating
	case a.Rating < MinRating:
		a.Rating = MinRating
	case a.Rating > MaxRating:
		a.Rating = MaxRating
	}

	a.Verdict = strings.TrimSpace(a.Verdict)
	if a.Verdict == "" {
		a.Verdict = DefaultVerdict
	}

	return a
}

// Results is the completed-only view of an interview.
type Results struct {
	InterviewID      string   `json:"interview_id"`
	Transcript       []Turn   `json:"transcript"`
	Rating           int      `json:"rating"`
	Verdict          string   `json:"verdict"`
	DetailedFeedback Feedback `json:"detailed_feedback"`
}
