package main

import (
	"os"

	"github.com/membufio/membuf/cmd/membuf/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
