//go:build !cdebug

package cvm

const debug = false
