// Command contentmetrics is the administrator CLI for a content metrics server.
//
// Usage:
//
//	contentmetrics login --server http://localhost:1337 --email admin@example.com
//	contentmetrics metrics
//	contentmetrics metrics --output json
//	contentmetrics types --all
//	contentmetrics doctor
package main

import (
	"fmt"
	"os"

	"github.com/contentmetrics/contentmetrics/cmd/contentmetrics/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
