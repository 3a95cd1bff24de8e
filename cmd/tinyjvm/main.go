// Command tinyjvm runs a compiled Java class or jar file, replacing the
// teacher's bare os.Args parsing (cmd/gojvm/main.go) with a cobra root
// command so flags like --classpath compose the way the rest of the Go
// ecosystem expects.
package main

import (
	"fmt"
	"os"

	"github.com/tinyjvm/tinyjvm/internal/trace"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

var exitCode int

func init() {
	trace.SetOutput(os.Stderr)
}
