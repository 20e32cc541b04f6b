package main

import (
	"os"

	"github.com/cablemesh/formfind/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
