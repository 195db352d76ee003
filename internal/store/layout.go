package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout describes the on-disk data directory.
type Layout struct {
	Root string
}

func (l Layout) CV() string      { return filepath.Join(l.Root, "cv") }
func (l Layout) JD() string      { return filepath.Join(l.Root, "jd") }
func (l Layout) Prompts() string { return filepath.Join(l.Root, "prompts") }
func (l Layout) Results() string { return filepath.Join(l.Root, "results") }
func (l Layout) Audio() string   { return filepath.Join(l.Root, "audio") }

// Ensure creates every directory of the layout.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.CV(), l.JD(), l.Prompts(), l.Results(), l.Audio()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}
	return nil
}
