package main

import (
	"os"

	"github.com/pagelens/pagelens/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
