package main

import (
	"fmt"
	"os"

	"github.com/use-agent/pagedigest/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pagedigest:", err)
		os.Exit(1)
	}
}
