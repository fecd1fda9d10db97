//go:build dynamips

package cvm

// #cgo LDFLAGS: -ldynamips
import "C"
