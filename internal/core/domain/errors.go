package domain

import (
	"errors"
	"fmt"
)

// ErrDependencyDegraded marks failures of advisory dependencies (cache and
// search index). The repository absorbs these; they never reach callers.
var ErrDependencyDegraded = errors.New("dependency degraded")

var (
	ErrCacheUnavailable  = fmt.Errorf("cache: %w", ErrDependencyDegraded)
	ErrSearchUnavailable = fmt.Errorf("search index: %w", ErrDependencyDegraded)
	// ErrSearchDisabled is returned by every search index operation when
	// search is switched off by configuration.
	ErrSearchDisabled = fmt.Errorf("%w: disabled", ErrSearchUnavailable)
)
