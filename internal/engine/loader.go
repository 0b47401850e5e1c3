package engine

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zeebo/xxh3"
)

// LoadError reports a failure to fetch or parse the CSV resource.
type LoadError struct {
	Location string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Location, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader reads the CSV resource from an http(s) URL or a local path.
type Loader struct {
	Client *http.Client
	// Timeout bounds a remote fetch. Zero means no timeout.
	Timeout time.Duration
}

// NewLoader returns a Loader using the default HTTP client.
func NewLoader(timeout time.Duration) *Loader {
	return &Loader{Client: http.DefaultClient, Timeout: timeout}
}

// --- 1. FETCH ---

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func (l *Loader) fetch(ctx context.Context, location string) ([]byte, error) {
	if !isRemote(location) {
		return os.ReadFile(location)
	}

	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/csv, text/plain, */*")

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// --- 2. MAIN LOADER ---

// Load fetches and parses the resource. Every failure is a *LoadError.
func (l *Loader) Load(ctx context.Context, location string) (*ColumnStore, error) {
	start := time.Now()
	log.Debug().Str("source", location).Msg("loading dataset")

	content, err := l.fetch(ctx, location)
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}

	store, err := Parse(bytes.NewReader(content))
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}
	store.Fingerprint = xxh3.Hash(content)

	log.Info().
		Str("source", location).
		Int("rows", store.Len()).
		Int("columns", len(store.header)).
		Dur("took", time.Since(start)).
		Msg("dataset loaded")
	return store, nil
}

// utf8BOM is stripped from the first header name.
const utf8BOM = "\uFEFF"

// Parse reads a CSV whose first record is the header. Blank lines are skipped,
// quotes are read leniently and rows the reader cannot parse are dropped.
func Parse(r io.Reader) (*ColumnStore, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	var (
		records [][]string
		skipped int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			skipped++
			log.Warn().Int("line", perr.Line).Err(perr.Err).Msg("skipping malformed csv row")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read rows: %w", err)
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("csv rows skipped")
	}
	return NewColumnStore(header, records), nil
}
