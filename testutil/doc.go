// Package testutil provides testing utilities.
//
// This package is intended for use in tests and benchmarks only. It
// provides a seeded, thread-safe random number generator so randomized
// tests are reproducible from their seed.
package testutil
