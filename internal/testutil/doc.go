// Package testutil provides fixture tools and helpers for testing the tool
// registry and execution engine.
//
// This package is internal and should not be imported by external code.
package testutil
