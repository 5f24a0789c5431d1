// Command researchctl runs research queries and manages the summary cache from
// the terminal.
package main

import "os"

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
