// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

import "math/rand"

// schedulerOptions holds configuration for Scheduler creation.
type schedulerOptions struct {
	causalityTracking bool
	randomizeTies     bool
	randSource        rand.Source
	pacingSpeed       float64
	logger            Logger
}

// Option configures a Scheduler instance.
type Option interface {
	applyScheduler(*schedulerOptions) error
}

type optionFunc struct {
	apply func(*schedulerOptions) error
}

func (o *optionFunc) applyScheduler(opts *schedulerOptions) error {
	return o.apply(opts)
}

// WithCausalityTracking enables the causality graph (spec §3 "Causality
// graph", §9 "Causality graph ownership"). Disabled by default: the graph
// grows for the run's lifetime with no pruning, a documented memory
// hazard.
func WithCausalityTracking(enabled bool) Option {
	return &optionFunc{func(opts *schedulerOptions) error {
		opts.causalityTracking = enabled
		return nil
	}}
}

// WithRandomizedTies enables randomized tie-breaking among events that
// share a logical time (spec §4.1 "Tie-breaking"). Mutually exclusive
// with deterministic trace-comparison testing (spec §9); the caller is
// responsible for not combining the two.
func WithRandomizedTies(src rand.Source) Option {
	return &optionFunc{func(opts *schedulerOptions) error {
		opts.randomizeTies = true
		opts.randSource = src
		return nil
	}}
}

// WithPacing enables wall-clock pacing at the given speed multiplier
// (spec §4.1 "Pacing mode"). speed <= 0 disables pacing (the default).
func WithPacing(speed float64) Option {
	return &optionFunc{func(opts *schedulerOptions) error {
		opts.pacingSpeed = speed
		return nil
	}}
}

// WithLogger sets the Logger this scheduler reports a halted run to
// (the error-level entry written when an event fails). Event and
// continuation debug entries always go to the process-wide logger (see
// SetStructuredLogger). If omitted, the scheduler uses the global logger
// in effect when New is called.
func WithLogger(l Logger) Option {
	return &optionFunc{func(opts *schedulerOptions) error {
		opts.logger = l
		return nil
	}}
}

// resolveOptions applies Option instances to schedulerOptions.
func resolveOptions(opts []Option) (*schedulerOptions, error) {
	cfg := &schedulerOptions{
		randSource: rand.NewSource(1),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyScheduler(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
