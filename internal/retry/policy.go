// Package retry computes backoff delays for the artifact fetcher.
package retry

import (
	"time"

	"github.com/py-swift/wheelsite/internal/config"
)

// Policy decides how many times a failed fetch is retried and how long to
// wait between attempts.
type Policy struct {
	Mode       config.RetryBackoffMode
	Initial    time.Duration // delay before the first retry
	Max        time.Duration // ceiling for grown delays
	MaxRetries int           // retries after the initial attempt
}

// DefaultPolicy is linear backoff from one second, capped at thirty seconds,
// with two retries.
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffLinear, Initial: time.Second, Max: 30 * time.Second, MaxRetries: 2}
}

// FromConfig builds a policy from the fetch section. Unset fields keep their
// defaults; an explicit max_retries of zero disables retries.
func FromConfig(fc config.FetchConfig) Policy {
	retries := -1
	if fc.MaxRetries != nil {
		retries = *fc.MaxRetries
	}
	return NewPolicy(fc.RetryBackoff, fc.RetryInitialDuration(), fc.RetryMaxDuration(), retries)
}

// NewPolicy fills unset fields with defaults: zero durations, an unknown
// mode, and a negative maxRetries each keep the default value. Initial never
// exceeds Max.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDuration time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	switch mode {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = mode
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the wait before the n-th retry (1-based). Fixed mode always
// waits Initial; linear grows by Initial per retry; exponential doubles.
// Grown delays cap at Max.
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffExponential:
		d := p.Initial * time.Duration(1<<(retryCount-1))
		if d > p.Max {
			return p.Max
		}
		return d
	default:
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}
