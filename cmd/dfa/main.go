package main

import (
	"os"

	"github.com/gnolang/dfa/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
