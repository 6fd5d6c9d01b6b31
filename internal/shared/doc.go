// Package shared holds code used across packages that belongs to no single
// domain.
//
// The testutil subpackage provides:
//
//   - License key fixtures with their decoded fields or expected failure
//   - A buffered slog handler for asserting on log output
//
// testutil must not import domain packages, so that those packages' own
// tests can use it.
package shared
