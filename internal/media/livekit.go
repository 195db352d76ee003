// Package media issues access tokens for the LiveKit room an interview runs in.
package media

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = time.Hour

var ErrNotConfigured = errors.New("livekit credentials are not configured")

// VideoGrant is the LiveKit room permission set.
type VideoGrant struct {
	Room         string `json:"room"`
	RoomJoin     bool   `json:"roomJoin"`
	RoomCreate   bool   `json:"roomCreate,omitempty"`
	CanPublish   bool   `json:"canPublish"`
	CanSubscribe bool   `json:"canSubscribe"`
}

// RoomClaims is the LiveKit access token payload.
type RoomClaims struct {
	Video    VideoGrant `json:"video"`
	Metadata string     `json:"metadata,omitempty"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	apiKey    string
	apiSecret []byte
	url       string
	ttl       time.Duration
	now       func() time.Time
}

func NewTokenIssuer(apiKey, apiSecret, url string, ttl time.Duration) (*TokenIssuer, error) {
	apiKey, apiSecret = strings.TrimSpace(apiKey), strings.TrimSpace(apiSecret)
	if apiKey == "" || apiSecret == "" {
		return nil, ErrNotConfigured
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenIssuer{apiKey: apiKey, apiSecret: []byte(apiSecret), url: url, ttl: ttl, now: time.Now}, nil
}

// URL is the LiveKit server clients connect to.
func (i *TokenIssuer) URL() string { return i.url }

// RoomName is the LiveKit room of an interview.
func RoomName(interviewID string) string { return "interview-" + interviewID }

// Issue signs a token that lets participant join the interview room.
func (i *TokenIssuer) Issue(interviewID, participant string) (string, error) {
	participant = strings.TrimSpace(participant)
	if participant == "" {
		return "", errors.New("participant name is required")
	}

	now := i.now()
	claims := RoomClaims{
		Video: VideoGrant{
			Room:         RoomName(interviewID),
			RoomJoin:     true,
			RoomCreate:   true,
			CanPublish:   true,
			CanSubscribe: true,
		},
		Metadata: participant,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.apiKey,
			Subject:   participant,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.apiSecret)
	if err != nil {
		return "", fmt.Errorf("sign livekit token: %w", err)
	}
	return token, nil
}

// Parse verifies a token issued by Issue.
func (i *TokenIssuer) Parse(token string) (*RoomClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &RoomClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.apiSecret, nil
	}, jwt.WithIssuer(i.apiKey), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, err
	}
	return parsed.Claims.(*RoomClaims), nil
}
