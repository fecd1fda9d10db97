//go:build !dynamips

package main

import (
	_ "github.com/dynamips/vmglue/go/cmd/console"
	_ "github.com/dynamips/vmglue/go/cmd/irq"
)
