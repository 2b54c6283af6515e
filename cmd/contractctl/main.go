// Command contractctl drives the contract lifecycle engine from the shell.
// Every command prints its result as JSON on stdout. Failures print
// {"error", "kind", "code", "completedSteps"} on stderr and exit with a
// code per error kind.
package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
