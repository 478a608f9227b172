package main

import (
	"os"

	"github.com/raglens/raglens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
