package repository

import "github.com/dgraph-io/badger/v3"

// Default store configuration constants.
const (
	defaultMaxRetries = 5
)

// Option applies a configuration option to the BadgerStore.
type Option func(*BadgerStore)

// WithMaxRetries bounds how often Update retries a conflicting transaction.
func WithMaxRetries(n int) Option {
	return func(s *BadgerStore) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithBadgerOptions replaces the badger options used by Open.
func WithBadgerOptions(opts badger.Options) Option {
	return func(s *BadgerStore) {
		s.badgerOpts = &opts
	}
}
