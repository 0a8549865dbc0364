package strategy

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrInvalidInput        = errors.New("invalid link")
	ErrUnsupportedPlatform = errors.New("platform not supported")
	ErrNoMediaFound        = errors.New("no media found")

	ErrNoItemID      = errors.New("could not extract a content id from the link")
	ErrEmptyDetail   = errors.New("detail endpoint returned no item, the link may have expired")
	ErrNotApplicable = errors.New("strategy does not handle this platform")
)

const (
	noMediaDiagnostic  = "parsed but no media found"
	maxDiagnosticRunes = 200
)

// ResolveError is the single failure surfaced by the chain.
type ResolveError struct {
	// Kind is one of ErrInvalidInput, ErrUnsupportedPlatform, ErrNoMediaFound,
	// or the context error when the caller gave up.
	Kind error
	// Message is the last recorded diagnostic.
	Message string
	// Attempts keeps every per-strategy fault for logging.
	Attempts *multierror.Error
}

func (e *ResolveError) Error() string { return e.Message }

func (e *ResolveError) Unwrap() error { return e.Kind }

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func diagnostic(name string, err error) string {
	return fmt.Sprintf("%s: %s", name, truncate(err.Error(), maxDiagnosticRunes))
}
