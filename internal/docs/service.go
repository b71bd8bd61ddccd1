// Package docs renders the AsciiDoc reference material shipped with the node
// (API reference, settlement semantics) to HTML for the /api/docs endpoints.
package docs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bytesparadise/libasciidoc"
	"github.com/bytesparadise/libasciidoc/pkg/configuration"
)

// Service loads and caches rendered documents from a directory.
type Service struct {
	docsDir string
	cache   map[string]string // filename -> html content
	mu      sync.RWMutex
}

// NewService creates a docs service over docsDir.
func NewService(docsDir string) *Service {
	return &Service{
		docsDir: docsDir,
		cache:   make(map[string]string),
	}
}

// List returns the available document filenames, sorted.
func (s *Service) List() ([]string, error) {
	entries, err := os.ReadDir(s.docsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read docs dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".adoc") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// GetDoc renders one document to HTML, caching the result.
func (s *Service) GetDoc(filename string) (string, error) {
	if filepath.Base(filename) != filename || !strings.HasSuffix(filename, ".adoc") {
		return "", fmt.Errorf("invalid document name %q", filename)
	}

	s.mu.RLock()
	content, ok := s.cache[filename]
	s.mu.RUnlock()
	if ok {
		return content, nil
	}

	data, err := os.ReadFile(filepath.Join(s.docsDir, filename))
	if err != nil {
		return "", fmt.Errorf("failed to read doc file: %w", err)
	}

	output := bytes.NewBuffer(nil)
	config := configuration.NewConfiguration(
		configuration.WithHeaderFooter(false),
		configuration.WithAttribute("toc", "left"),
	)
	if _, err := libasciidoc.Convert(bytes.NewReader(data), output, config); err != nil {
		return "", fmt.Errorf("failed to convert asciidoc: %w", err)
	}

	html := output.String()
	s.mu.Lock()
	s.cache[filename] = html
	s.mu.Unlock()
	return html, nil
}
