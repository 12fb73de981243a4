package main

import (
	"os"

	"github.com/zoobzio/seqz/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
