package main

import (
	"os"

	"github.com/solatis/ruleproof/cmd/ruleproof/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
