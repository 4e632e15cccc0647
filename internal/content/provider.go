package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"go.uber.org/zap"
)

// ErrTemplateMissing means a requested template key has no content. It is a
// configuration defect, not a runtime condition: callers substitute a
// hardcoded minimal string and log for operators.
var ErrTemplateMissing = errors.New("template not found in content store")

// Provider gives read-only access to prompt templates and static bot
// strings, caching them locally after one load at startup.
type Provider struct {
	cacheLock sync.RWMutex
	cacheMap  map[string]string // key -> template content
	logger    *zap.Logger
}

// NewProvider creates a new content Provider.
func NewProvider(logger *zap.Logger) *Provider {
	if logger == nil {
		log.Fatal().Msg("Logger is nil for content Provider")
	}
	return &Provider{
		cacheMap: make(map[string]string),
		logger:   logger.Named("ContentProvider"),
	}
}

// LoadFromDir loads every *.md file in dir into the cache. The file name
// without extension becomes the template key. Called once at startup.
func (p *Provider) LoadFromDir(dir string) error {
	p.logger.Info("Loading content templates into cache...", zap.String("dir", dir))

	entries, err := os.ReadDir(dir)
	if err != nil {
		p.logger.Error("Failed to read content directory", zap.String("dir", dir), zap.Error(err))
		return fmt.Errorf("failed to read content directory '%s': %w", dir, err)
	}

	newCache := make(map[string]string)
	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		contentBytes, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			p.logger.Error("Failed to read template file", zap.String("file", entry.Name()), zap.Error(err))
			return fmt.Errorf("failed to read template file '%s': %w", entry.Name(), err)
		}
		key := strings.TrimSuffix(entry.Name(), ".md")
		newCache[key] = string(contentBytes)
		count++
	}

	p.cacheLock.Lock()
	p.cacheMap = newCache
	p.cacheLock.Unlock()

	p.logger.Info("Content templates loaded successfully into cache", zap.Int("count", count))
	return nil
}

// Set places a single template into the cache. Used by tests and by callers
// that provide built-in defaults.
func (p *Provider) Set(key, content string) {
	p.cacheLock.Lock()
	p.cacheMap[key] = content
	p.cacheLock.Unlock()
}

// Get retrieves template content by key.
func (p *Provider) Get(key string) (string, error) {
	p.cacheLock.RLock()
	content, ok := p.cacheMap[key]
	p.cacheLock.RUnlock()

	if !ok {
		p.logger.Error("Template not found in cache", zap.String("key", key))
		return "", fmt.Errorf("%w: key='%s'", ErrTemplateMissing, key)
	}
	return content, nil
}

// Render retrieves a template and substitutes {{PLACEHOLDER}} values.
func (p *Provider) Render(key string, placeholders map[string]string) (string, error) {
	content, err := p.Get(key)
	if err != nil {
		return "", err
	}
	for name, value := range placeholders {
		content = strings.ReplaceAll(content, "{{"+name+"}}", value)
	}
	return content, nil
}
