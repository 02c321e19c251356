// Package backoff decides how long to wait between upstream requests. It keeps
// no clock and never sleeps; the caller owns suspension.
package backoff

import (
	"time"

	"boardgame-tracker/internal/constants"
)

type Policy struct {
	min       time.Duration
	max       time.Duration
	threshold int

	current   time.Duration
	successes int
}

func NewPolicy(min, max time.Duration) *Policy {
	if max < min {
		max = min
	}
	return &Policy{
		min:       min,
		max:       max,
		threshold: constants.BackoffSuccessThreshold,
		current:   min,
	}
}

// OnFailure returns how long to wait before retrying and doubles the delay
// used for the next failure, capped at max.
func (p *Policy) OnFailure() time.Duration {
	wait := p.current
	p.current *= 2
	if p.current > p.max {
		p.current = p.max
	}
	p.successes = 0
	return wait
}

// OnSuccess halves the delay after every threshold successes in a row,
// never going below min.
func (p *Policy) OnSuccess() {
	p.successes++
	if p.successes < p.threshold {
		return
	}
	p.current /= 2
	if p.current < p.min {
		p.current = p.min
	}
	p.successes = 0
}

func (p *Policy) Delay() time.Duration {
	return p.current
}

func (p *Policy) Successes() int {
	return p.successes
}
