package services

import (
	"errors"
	"strings"

	"github.com/Lllllllleong/documentqaflow/internal/extract"
)

// ErrValidation marks missing or malformed caller input.
var ErrValidation = errors.New("invalid request")

// ErrUpstream marks a failure of the object store, record store, extractor or generator.
var ErrUpstream = errors.New("upstream failure")

// ErrNoText is the content error for PDFs without a text layer. It matches ErrUpstream.
var ErrNoText error = &upstreamError{msg: "no extractable text found in PDF (image-only documents are not supported)"}

// ValidationError names the input field that is missing.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return e.Field + " is required"
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

type upstreamError struct {
	msg string
	err error
}

func (e *upstreamError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *upstreamError) Unwrap() error {
	return e.err
}

func (e *upstreamError) Is(target error) bool {
	return target == ErrUpstream
}

func upstream(message string, err error) error {
	return &upstreamError{msg: message, err: err}
}

// required checks name/value pairs and reports the first blank value.
func required(fields ...string) error {
	for i := 0; i+1 < len(fields); i += 2 {
		if strings.TrimSpace(fields[i+1]) == "" {
			return &ValidationError{Field: fields[i]}
		}
	}
	return nil
}

// extractText runs the extractor and applies the character cap shared by the
// pipeline and the query path.
func extractText(extractor TextExtractor, data []byte, limit int) (string, error) {
	pages, err := extractor.ExtractPages(data)
	if err != nil {
		return "", upstream("could not read PDF", err)
	}
	text := extract.CapText(pages, limit)
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}
