// Copyright 2025 James Ross
package consumer

import "errors"

var (
	errTimeout     = errors.New("next: timed out waiting for a payload")
	errBreakerOpen = errors.New("next: circuit breaker open, refusing to dequeue")
)
