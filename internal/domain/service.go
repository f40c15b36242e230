package domain

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vitaehq/vitae/internal/logging"
)

var (
	// ErrEmptyDocument is returned for a zero-byte upload.
	ErrEmptyDocument = errors.New("empty document")
	// ErrUnparseableDocument is returned when the external service could not
	// extract the candidate's name from the document.
	ErrUnparseableDocument = errors.New("unparseable document")
)

// ParseResult is the outcome of one submission.
type ParseResult struct {
	Resume      *Resume
	Fingerprint string
	Handle      string
	// Cached is true when the fingerprint was already known and the external
	// submission was skipped.
	Cached bool
}

// HeaderMatch is one entry of a section-header comparison: how often the
// header occurs in resumes for a job title, and whether the current resume
// contains it.
type HeaderMatch struct {
	Header    string `json:"header"`
	Frequency int64  `json:"frequency"`
	Present   bool   `json:"present"`
}

// ParseService orchestrates resume submissions: it guarantees at most one
// external submission per distinct document, drives the external job to
// completion and decodes the result.
type ParseService struct {
	fingerprints FingerprintStore
	blobs        ContentStore
	parser       ParserClient
	headers      SectionHeaderStore
	log          *logging.Logger
}

// NewParseService creates a new ParseService.
func NewParseService(fingerprints FingerprintStore, blobs ContentStore, parser ParserClient, headers SectionHeaderStore, log *logging.Logger) *ParseService {
	return &ParseService{
		fingerprints: fingerprints,
		blobs:        blobs,
		parser:       parser,
		headers:      headers,
		log:          log,
	}
}

// Process fingerprints content, submits it to the external parser unless an
// identical document was seen before, awaits the result and decodes it.
func (s *ParseService) Process(ctx context.Context, filename string, content []byte) (*ParseResult, error) {
	if len(content) == 0 {
		return nil, ErrEmptyDocument
	}

	fingerprint := Fingerprint(content)

	handle, found, err := s.fingerprints.Lookup(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("fingerprint lookup: %w", err)
	}

	if !found {
		key := contentKey(fingerprint, filename)
		if err := s.blobs.Put(ctx, key, content); err != nil {
			return nil, fmt.Errorf("store content: %w", err)
		}
		handle, err = s.parser.Submit(ctx, s.blobs.URL(key))
		if err != nil {
			return nil, fmt.Errorf("submit %s: %w", filename, err)
		}
	} else {
		s.log.Info("fingerprint cache hit", "fingerprint", fingerprint, "handle", handle)
	}

	raw, err := s.parser.Await(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("await %s: %w", handle, err)
	}

	if !found {
		// The submission already succeeded; a failed cache write only costs a
		// duplicate submission next time.
		if err := s.fingerprints.Record(ctx, fingerprint, handle); err != nil {
			s.log.Warn("recording fingerprint failed", "fingerprint", fingerprint, "error", err)
		}
	}

	resume, err := DecodeResume(raw)
	if err != nil {
		return nil, err
	}
	if resume.Data == nil || resume.Data.Name == nil {
		return nil, fmt.Errorf("%s: %w", filename, ErrUnparseableDocument)
	}

	return &ParseResult{
		Resume:      resume,
		Fingerprint: fingerprint,
		Handle:      handle,
		Cached:      found,
	}, nil
}

// RecordSectionHeaders counts the resume's section names against a job title.
func (s *ParseService) RecordSectionHeaders(ctx context.Context, jobTitle string, resume *Resume) error {
	jobTitle = strings.TrimSpace(jobTitle)
	names := resume.SectionNames()
	if jobTitle == "" || len(names) == 0 {
		return nil
	}
	if err := s.headers.Increment(ctx, jobTitle, names); err != nil {
		return fmt.Errorf("record section headers: %w", err)
	}
	return nil
}

// CompareSectionHeaders returns the ten most frequent section headers seen for
// a job title, each flagged with whether the resume contains it.
func (s *ParseService) CompareSectionHeaders(ctx context.Context, jobTitle string, resume *Resume) ([]HeaderMatch, error) {
	jobTitle = strings.TrimSpace(jobTitle)
	if jobTitle == "" {
		return nil, nil
	}

	top, err := s.headers.Top(ctx, jobTitle, 10)
	if err != nil {
		return nil, fmt.Errorf("top section headers: %w", err)
	}

	have := make(map[string]bool)
	for _, name := range resume.SectionNames() {
		have[name] = true
	}

	matches := make([]HeaderMatch, 0, len(top))
	for _, hc := range top {
		matches = append(matches, HeaderMatch{
			Header:    hc.Header,
			Frequency: hc.Frequency,
			Present:   have[hc.Header],
		})
	}
	return matches, nil
}

// contentKey derives the blob key for a document: fingerprint plus the
// original extension, so re-uploads of the same bytes map to the same object.
func contentKey(fingerprint, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".pdf"
	}
	return fingerprint + ext
}
