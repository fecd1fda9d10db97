package main

import (
	"github.com/dynamips/vmglue/go/cmd"

	_ "github.com/dynamips/vmglue/go/cmd/errno"
	_ "github.com/dynamips/vmglue/go/cmd/trace"
)

func main() { cmd.Main() }
