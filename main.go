package main

import (
	"fmt"
	"os"

	cli "github.com/TickTockBent/charlotte/cmd/charlotte"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
