// Package calendar stores one iCalendar text document per named calendar and
// provisions an empty calendar the first time a name is read.
package calendar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/cyp0633/libgitdoc/docstore"
	"github.com/cyp0633/libgitdoc/storage"
	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

const (
	DefaultName          = "kalendarz"
	DefaultProductID     = "-//libgitdoc//EN"
	DefaultDisplayPrefix = "Calendar"

	fileExt = ".ics"
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Config controls where calendars live and how new ones look.
type Config struct {
	// Dir is prepended to every calendar file name.
	Dir           string
	DefaultName   string
	ProductID     string
	DisplayPrefix string
	// Strict makes Save reject text that does not decode as a VCALENDAR.
	Strict bool
}

// Calendar is the stored text of one calendar and its version.
type Calendar struct {
	File    string
	Text    string
	Version string
}

// Service reads and writes calendar documents through a coordinator.
type Service struct {
	docs   *docstore.Coordinator
	cfg    Config
	logger *slog.Logger
}

// NewService creates a calendar service. Empty config fields take the package
// defaults.
func NewService(docs *docstore.Coordinator, cfg Config, logger *slog.Logger) *Service {
	if cfg.DefaultName == "" {
		cfg.DefaultName = DefaultName
	}
	if cfg.ProductID == "" {
		cfg.ProductID = DefaultProductID
	}
	if cfg.DisplayPrefix == "" {
		cfg.DisplayPrefix = DefaultDisplayPrefix
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{docs: docs, cfg: cfg, logger: logger}
}

// FileName resolves a calendar name to its file name. "alice" and "alice.ics"
// name the same calendar; an empty name selects the default calendar.
func (s *Service) FileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = s.cfg.DefaultName
	}
	base := strings.TrimSuffix(name, fileExt)
	if !namePattern.MatchString(base) {
		return "", storage.NewValidationError("invalid calendar name %q", name)
	}
	return base + fileExt, nil
}

func (s *Service) path(file string) string {
	return storage.JoinPath(s.cfg.Dir, file)
}

// Get returns the calendar, creating an empty one if it does not exist yet.
func (s *Service) Get(ctx context.Context, name string) (Calendar, error) {
	file, err := s.FileName(name)
	if err != nil {
		return Calendar{}, err
	}

	snap, err := s.docs.ReadOrInit(ctx, s.path(file), func() ([]byte, error) {
		return s.emptyCalendar(file), nil
	}, "Create calendar for user: "+file)
	if err != nil {
		return Calendar{}, err
	}
	return Calendar{File: file, Text: string(snap.Content), Version: snap.Version}, nil
}

// Save stores text as the calendar's content and returns the new version.
//
// With a version, the write is conditional on it. Without one the current
// version is looked up first; if the calendar does not exist the write is
// unconditional, so callers that omit the version can overwrite a concurrent
// creation.
func (s *Service) Save(ctx context.Context, name, text string, version, message mo.Option[string]) (string, error) {
	if text == "" {
		return "", storage.NewValidationError("content is required")
	}
	file, err := s.FileName(name)
	if err != nil {
		return "", err
	}
	if s.cfg.Strict {
		if err := Validate(text); err != nil {
			return "", err
		}
	}

	path := s.path(file)
	msg := message.OrElse("Update calendar: " + file)
	if msg == "" {
		msg = "Update calendar: " + file
	}

	if v, ok := version.Get(); ok && v != "" {
		return s.docs.UpdateExisting(ctx, path, v, []byte(text), msg)
	}

	current, err := s.docs.Discover(ctx, path)
	if err != nil {
		return "", err
	}
	discovered := mo.None[string]()
	if snap, ok := current.Get(); ok {
		discovered = mo.Some(snap.Version)
	} else {
		s.logger.Debug("saving calendar without precondition", "file", file)
	}
	return s.docs.Commit(ctx, path, discovered, []byte(text), msg)
}

func (s *Service) emptyCalendar(file string) []byte {
	var b bytes.Buffer
	b.WriteString("BEGIN:VCALENDAR\n")
	b.WriteString("VERSION:2.0\n")
	fmt.Fprintf(&b, "PRODID:%s\n", s.cfg.ProductID)
	b.WriteString("CALSCALE:GREGORIAN\n")
	b.WriteString("METHOD:PUBLISH\n")
	fmt.Fprintf(&b, "X-WR-CALNAME:%s - %s\n", s.cfg.DisplayPrefix, strings.TrimSuffix(file, fileExt))
	b.WriteString("END:VCALENDAR")
	return b.Bytes()
}

// Validate reports a validation error unless text decodes as an iCalendar
// VCALENDAR object.
func Validate(text string) error {
	cal, err := ical.NewDecoder(strings.NewReader(text)).Decode()
	if err != nil {
		return storage.NewValidationError("invalid calendar data: %v", err)
	}
	if cal.Name != ical.CompCalendar {
		return storage.NewValidationError("invalid calendar data: top-level component is %s", cal.Name)
	}
	return nil
}
