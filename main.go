package main

import (
	"os"

	"github.com/laddvakt/laddvakt/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
