// Package documents extracts plain text from uploaded CV and job description files.
package documents

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/logger"
)

// ErrUnsupported is returned for file types that cannot be converted to text.
var ErrUnsupported = errors.New("unsupported document type")

// Extractor converts stored documents to text. It keeps no cache: each call
// reads the file again.
type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(log *zap.Logger) *Extractor {
	return &Extractor{logger: logger.OrNop(log)}
}

// Supported reports whether a file name has an extension Extract understands.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".docx", ".doc", ".rtf", ".odt", ".txt", ".md":
		return true
	}
	return false
}

func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(path) == "" {
		return "", errors.New("document path is empty")
	}

	var text string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf", ".docx", ".doc", ".rtf", ".odt":
		res, err := docconv.ConvertPath(path)
		if err != nil {
			return "", fmt.Errorf("convert %s: %w", filepath.Base(path), err)
		}
		text = res.Body
	case ".txt", ".md":
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		text = string(content)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}

	text = strings.TrimSpace(text)
	e.logger.Debug("extracted document text",
		zap.String("file", filepath.Base(path)),
		zap.Int("chars", len(text)),
	)

	return text, nil
}

// ExtractPair returns CV and job description text. A failed extraction yields
// empty text for that document so callers can fall back.
func (e *Extractor) ExtractPair(ctx context.Context, cvPath, jdPath string) (string, string) {
	return e.extractOrEmpty(ctx, cvPath), e.extractOrEmpty(ctx, jdPath)
}

func (e *Extractor) extractOrEmpty(ctx context.Context, path string) string {
	text, err := e.Extract(ctx, path)
	if err != nil {
		e.logger.Warn("document extraction failed", zap.String("file", filepath.Base(path)), zap.Error(err))
		return ""
	}
	return text
}
