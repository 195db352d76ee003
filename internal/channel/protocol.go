// Package channel carries the interview protocol over a WebSocket connection.
package channel

import (
	"encoding/base64"
	"errors"
	"strings"
)

// Outbound message kinds.
const (
	TypeGreeting   = "greeting"
	TypeQuestion   = "question"
	TypeCompletion = "completion"
	TypeResults    = "results"
	TypeError      = "error"
)

// TypeResponse is the only inbound message kind.
const TypeResponse = "response"

// ErrClosed is returned once the remote side has gone away.
var ErrClosed = errors.New("channel closed")

// Message is a server-to-client frame.
type Message struct {
	Type           string `json:"type"`
	Text           string `json:"text,omitempty"`
	AudioURL       string `json:"audio_url,omitempty"`
	QuestionNumber int    `json:"question_number,omitempty"`
	Rating         int    `json:"rating,omitempty"`
	Verdict        string `json:"verdict,omitempty"`
	Message        string `json:"message,omitempty"`
}

func Greeting(text, audioURL string) Message {
	return Message{Type: TypeGreeting, Text: text, AudioURL: audioURL}
}

func Question(text, audioURL string, number int) Message {
	return Message{Type: TypeQuestion, Text: text, AudioURL: audioURL, QuestionNumber: number}
}

func Completion(text, audioURL string) Message {
	return Message{Type: TypeCompletion, Text: text, AudioURL: audioURL}
}

func Results(rating int, verdict string) Message {
	return Message{Type: TypeResults, Rating: rating, Verdict: verdict}
}

func Error(message string) Message {
	return Message{Type: TypeError, Message: message}
}

// Response is a client-to-server candidate turn. Exactly one of AudioData or
// Text is expected.
type Response struct {
	Type      string `json:"type"`
	AudioData string `json:"audio_data,omitempty"`
	Text      string `json:"text,omitempty"`
}

// HasAudio reports whether the response carries an audio payload.
func (r Response) HasAudio() bool {
	return strings.TrimSpace(r.AudioData) != ""
}

// Audio decodes the base64 audio payload. Data URL prefixes are accepted.
func (r Response) Audio() ([]byte, error) {
	data := strings.TrimSpace(r.AudioData)
	if strings.HasPrefix(data, "data:") {
		if i := strings.IndexByte(data, ','); i >= 0 {
			data = data[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(data)
}
