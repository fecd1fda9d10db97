//go:build cdebug

package cvm

// Built with -tags cdebug: extra assertions on pool lifecycle and logged strings.
const debug = true
