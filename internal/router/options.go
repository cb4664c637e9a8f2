package router

import (
	"firestige.xyz/router/internal/log"
)

type options struct {
	retry         RetryPolicy
	dropMalformed bool
	logger        log.Logger
}

// Option configures a Router and its engines.
type Option func(*options)

// WithRetryPolicy overrides the resolution retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *options) { o.retry = p }
}

// WithDropMalformed makes malformed frames counted drops instead of fatal errors.
func WithDropMalformed(drop bool) Option {
	return func(o *options) { o.dropMalformed = drop }
}

// WithLogger sets the base logger; engines add a direction field.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{retry: DefaultRetryPolicy()}
	for _, opt := range opts {
		opt(&o)
	}
	o.retry = o.retry.normalize()
	if o.logger == nil {
		o.logger = log.GetLogger()
	}
	return o
}
