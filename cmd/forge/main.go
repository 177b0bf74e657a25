package main

import (
	"fmt"
	"os"

	"github.com/forgebuild/forge/pkg/cli"
	"github.com/forgebuild/forge/pkg/isolate"
)

func main() {
	// Child mode first: re-exec'd build children must never reach the
	// CLI.
	if isolate.Main() {
		return
	}

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "forge: %v\n", err)
		os.Exit(1)
	}
}
