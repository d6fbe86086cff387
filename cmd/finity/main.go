package main

import (
	"os"

	"github.com/finity-lang/finity/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
