package phrasebook

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/tch-helper-go/internal/suggest"
	"github.com/tch-helper-go/pkg/markdown"
)

// Section headings recognised in a phrasebook file
const (
	headingGreeting = "greeting"
	prefixMood      = "mood/"
	prefixGeneric   = "generic/"
)

// Book is one locale's phrase overrides, loaded from <locale>.md
type Book struct {
	Locale   string
	FilePath string
	ModTime  time.Time
	Pools    suggest.Pools
	Phrases  int
}

// Service interface for phrasebook operations
type Service interface {
	Load(ctx context.Context, dir string) error
	Refresh(ctx context.Context) error
	Pools(locale string) (suggest.Pools, bool)
	Locales() []string
	OnReload(fn func())
}

// PhrasebookService loads fallback phrase overrides from markdown files
type PhrasebookService struct {
	books     map[string]*Book
	booksRW   sync.RWMutex
	dir       string
	maxLength int
	logger    *logrus.Logger
	listeners []func()
}

// NewPhrasebookService creates a new phrasebook service. Phrases longer
// than maxLength runes are dropped at load time.
func NewPhrasebookService(maxLength int, logger *logrus.Logger) *PhrasebookService {
	return &PhrasebookService{
		books:     make(map[string]*Book),
		maxLength: maxLength,
		logger:    logger,
	}
}

// Load reads every *.md file in dir. A missing directory leaves the
// built-in pools in effect.
func (s *PhrasebookService) Load(ctx context.Context, dir string) error {
	s.dir = dir
	s.logger.WithField("dir", dir).Info("Loading phrasebook")

	books := make(map[string]*Book)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Skip non-markdown files
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".md") {
			return nil
		}

		book, err := s.loadBook(path)
		if err != nil {
			s.logger.WithError(err).WithField("path", path).Warn("Failed to load phrasebook")
			return nil // Continue with other files
		}

		books[book.Locale] = book
		s.logger.WithFields(logrus.Fields{
			"locale":  book.Locale,
			"phrases": book.Phrases,
			"path":    path,
		}).Debug("Loaded phrasebook")

		return nil
	})

	if errors.Is(err, fs.ErrNotExist) {
		s.logger.WithField("dir", dir).Info("Phrasebook directory missing, using built-in phrases")
		err = nil
	}
	if err != nil {
		return fmt.Errorf("failed to walk phrasebook directory: %w", err)
	}

	s.booksRW.Lock()
	s.books = books
	listeners := append([]func(){}, s.listeners...)
	s.booksRW.Unlock()

	s.logger.WithField("count", len(books)).Info("Phrasebook loaded")
	for _, fn := range listeners {
		fn()
	}
	return nil
}

// Refresh reloads the phrasebook directory
func (s *PhrasebookService) Refresh(ctx context.Context) error {
	if s.dir == "" {
		return nil
	}
	return s.Load(ctx, s.dir)
}

// OnReload registers a callback run after every successful load
func (s *PhrasebookService) OnReload(fn func()) {
	s.booksRW.Lock()
	defer s.booksRW.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Pools returns the merged pools for locale
func (s *PhrasebookService) Pools(locale string) (suggest.Pools, bool) {
	s.booksRW.RLock()
	defer s.booksRW.RUnlock()

	book, ok := s.books[locale]
	if !ok {
		return suggest.DefaultPools(), false
	}
	return book.Pools, true
}

// Locales lists the loaded locales in order
func (s *PhrasebookService) Locales() []string {
	s.booksRW.RLock()
	defer s.booksRW.RUnlock()

	locales := make([]string, 0, len(s.books))
	for locale := range s.books {
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	return locales
}

// loadBook loads a single phrasebook file
func (s *PhrasebookService) loadBook(path string) (*Book, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pools, phrases := s.Parse(string(content))
	if phrases == 0 {
		return nil, fmt.Errorf("no phrases found")
	}

	return &Book{
		Locale:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		FilePath: path,
		ModTime:  info.ModTime(),
		Pools:    pools,
		Phrases:  phrases,
	}, nil
}

// Parse merges the sections of src over the default pools. A section with
// at least one usable phrase replaces the built-in list for its pool.
func (s *PhrasebookService) Parse(src string) (suggest.Pools, int) {
	pools := clonePools(suggest.DefaultPools())
	phrases := 0

	for _, section := range markdown.ParseSections(src) {
		items := s.usable(section.Items)
		if len(items) == 0 {
			continue
		}

		title := strings.ToLower(strings.TrimSpace(section.Title))
		switch {
		case title == headingGreeting:
			pools.Greetings = items
		case strings.HasPrefix(title, prefixMood):
			pools.Mood[strings.TrimPrefix(title, prefixMood)] = items
		case strings.HasPrefix(title, prefixGeneric):
			category := strings.TrimPrefix(title, prefixGeneric)
			if _, exists := pools.Generic[category]; !exists {
				pools.GenericOrder = append(pools.GenericOrder, category)
			}
			pools.Generic[category] = items
		default:
			s.logger.WithField("section", section.Title).Debug("Ignoring unknown phrasebook section")
			continue
		}
		phrases += len(items)
	}

	return pools, phrases
}

func (s *PhrasebookService) usable(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		text := suggest.NormalizeText(item)
		if text == "" || strings.ContainsAny(item, "\r\n") {
			continue
		}
		if s.maxLength > 0 && utf8.RuneCountInString(text) > s.maxLength {
			s.logger.WithField("phrase", text).Warn("Dropping phrase longer than the display limit")
			continue
		}
		out = append(out, text)
	}
	return out
}

func clonePools(p suggest.Pools) suggest.Pools {
	out := suggest.Pools{
		Greetings:    append([]string{}, p.Greetings...),
		Mood:         make(map[string][]string, len(p.Mood)),
		Generic:      make(map[string][]string, len(p.Generic)),
		Gates:        append([]suggest.MoodGate{}, p.Gates...),
		GenericOrder: append([]string{}, p.GenericOrder...),
	}
	for k, v := range p.Mood {
		out.Mood[k] = append([]string{}, v...)
	}
	for k, v := range p.Generic {
		out.Generic[k] = append([]string{}, v...)
	}
	return out
}
