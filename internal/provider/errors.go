package provider

import (
	"context"
	"errors"
	"strings"
)

// Kind classifies a provider failure for caller-facing mapping. The raw
// error detail stays in the logs.
type Kind int

const (
	KindOther Kind = iota
	KindTimeout
	KindAuth
)

// Classify inspects a provider error signal. Timeout and authentication
// failures get distinct user-facing treatment; everything else is generic.
func Classify(err error) Kind {
	if err == nil {
		return KindOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "timeout"), strings.Contains(text, "deadline exceeded"):
		return KindTimeout
	case strings.Contains(text, "api key"),
		strings.Contains(text, "authentication"),
		strings.Contains(text, "unauthorized"),
		strings.Contains(text, "401"):
		return KindAuth
	}
	return KindOther
}
