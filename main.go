// The main package for the rechtspraak-scraper executable.
package main

import (
	"github.com/opendatacollection/rechtspraak-scraper/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
