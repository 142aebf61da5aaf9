package main

import (
	"os"

	"github.com/openagentic/a2a-core/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
