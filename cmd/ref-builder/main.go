package main

import (
	"os"

	"github.com/rcliao/ref-builder/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
