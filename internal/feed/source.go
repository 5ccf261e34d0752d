package feed

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/wonny/fundcompare/backend/internal/contracts"
	"github.com/wonny/fundcompare/backend/pkg/config"
	"github.com/wonny/fundcompare/backend/pkg/database"
	"github.com/wonny/fundcompare/backend/pkg/httputil"
)

// Source fetches one raw document
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	Location() string
}

// DocumentStore serves documents by name. *database.DB satisfies it.
type DocumentStore interface {
	Document(ctx context.Context, name string) ([]byte, error)
}

// Format is the encoding of a document
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// DetectFormat picks YAML for .yaml/.yml locations and JSON otherwise
func DetectFormat(location string) Format {
	p := location
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && u.Path != "" {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Deps are the clients a source may need
type Deps struct {
	HTTP  *httputil.Client
	Store DocumentStore
}

// NewSource resolves a location to a source.
// http(s) URLs go through the shared HTTP client, pg:<name> reads the
// feed_documents table, anything else is a file path.
func NewSource(location string, deps Deps) (Source, error) {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		if deps.HTTP == nil {
			return nil, fmt.Errorf("no HTTP client for %s", location)
		}
		return &HTTPSource{URL: location, Client: deps.HTTP}, nil

	case strings.HasPrefix(location, config.PostgresScheme):
		name := strings.TrimPrefix(location, config.PostgresScheme)
		if name == "" {
			return nil, fmt.Errorf("empty document name in %q", location)
		}
		if deps.Store == nil {
			return nil, fmt.Errorf("no database for %s", location)
		}
		return &PostgresSource{Name: name, Store: deps.Store}, nil

	default:
		return &FileSource{Path: strings.TrimPrefix(location, "file://")}, nil
	}
}

// HTTPSource fetches a document over HTTP
type HTTPSource struct {
	URL    string
	Client *httputil.Client
}

func (s *HTTPSource) Location() string { return s.URL }

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	body, err := s.Client.GetBody(ctx, s.URL)
	if err != nil {
		return nil, &contracts.FetchError{Location: s.URL, Err: err}
	}
	return body, nil
}

// FileSource reads a document from disk
type FileSource struct {
	Path string
}

func (s *FileSource) Location() string { return s.Path }

func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &contracts.FetchError{Location: s.Path, Err: err}
	}
	body, err := os.ReadFile(filepath.Clean(s.Path))
	if err != nil {
		return nil, &contracts.FetchError{Location: s.Path, Err: err}
	}
	return body, nil
}

// PostgresSource reads a document stored by `fundcmp feed push`
type PostgresSource struct {
	Name  string
	Store DocumentStore
}

func (s *PostgresSource) Location() string { return config.PostgresScheme + s.Name }

func (s *PostgresSource) Fetch(ctx context.Context) ([]byte, error) {
	body, err := s.Store.Document(ctx, s.Name)
	if err != nil {
		if errors.Is(err, database.ErrDocumentNotFound) {
			err = fmt.Errorf("document %q: %w", s.Name, err)
		}
		return nil, &contracts.FetchError{Location: s.Location(), Err: err}
	}
	return body, nil
}

// FetchObserver is told about every fetch attempt
type FetchObserver func(location string, elapsed time.Duration, err error)

type observedSource struct {
	Source
	observe FetchObserver
}

// Observe wraps src so fn sees each fetch
func Observe(src Source, fn FetchObserver) Source {
	if fn == nil {
		return src
	}
	return &observedSource{Source: src, observe: fn}
}

func (s *observedSource) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	body, err := s.Source.Fetch(ctx)
	s.observe(s.Location(), time.Since(start), err)
	return body, err
}
