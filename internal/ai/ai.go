// Package ai defines the text-generation capability used to run interviews and
// the fallback policy applied at its boundary.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/interviewer/internal/interview"
)

const (
	FallbackInitialQuestion = "Could you tell me about your background and experience?"
	FallbackFollowUp        = "Can you elaborate more on your previous answer?"

	UnparseableVerdict = "Unable to parse assessment properly. Please review the interview transcript."
	FailedVerdict      = "Unable to generate assessment due to an error. Please review the interview transcript."
	unparseableNote    = "Unable to parse assessment"
	uncertainFit       = "Uncertain"
)

var (
	// ErrUnparseable marks model output that does not match the expected schema.
	ErrUnparseable = errors.New("model output does not match the expected schema")
	// ErrMissingDocuments is returned when CV or job description text is empty.
	ErrMissingDocuments = errors.New("cv or job description text is empty")
)

type InitialRequest struct {
	CVText       string
	JDText       string
	SystemPrompt string
	MaxQuestions int
}

type FollowUpRequest struct {
	Transcript   []interview.Turn
	SystemPrompt string
	CVText       string
	JDText       string
}

type AssessmentRequest struct {
	Transcript []interview.Turn
	CVText     string
	JDText     string
}

// Provider is a concrete text-generation backend. Its methods may fail.
type Provider interface {
	InitialQuestions(ctx context.Context, req InitialRequest) ([]string, error)
	FollowUp(ctx context.Context, req FollowUpRequest) (string, error)
	Assess(ctx context.Context, req AssessmentRequest) (*interview.Assessment, error)
	Name() string
}

// GenerationError reports that a fallback replaced the provider result.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation %s failed: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// FormatTranscript renders turns the way prompts expect them.
func FormatTranscript(turns []interview.Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		speaker := "Candidate"
		if turn.Speaker == interview.SpeakerAI {
			speaker = "AI Interviewer"
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(turn.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

// UnparseableAssessment is the result used when the model output cannot be decoded.
func UnparseableAssessment() interview.Assessment {
	return interview.Assessment{
		Rating:  interview.NeutralRating,
		Verdict: UnparseableVerdict,
		Feedback: interview.Feedback{
			Strengths:  []string{unparseableNote},
			Weaknesses: []string{unparseableNote},
			FitForRole: uncertainFit,
		},
	}
}

// FailedAssessment is the result used when the provider call itself fails.
func FailedAssessment(err error) interview.Assessment {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return interview.Assessment{
		Rating:   interview.NeutralRating,
		Verdict:  FailedVerdict,
		Feedback: interview.Feedback{Error: msg},
	}
}
