package main

import (
	"os"

	"github.com/rustyeddy/taengine/cmd/taengine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
