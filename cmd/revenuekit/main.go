package main

import (
	"errors"
	"fmt"
	"os"
)

// exitError carries a specific process exit code out of a command, e.g. the
// batch summary's failure code or a health check below the failure floor.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			if exit.msg != "" {
				fmt.Fprintln(os.Stderr, exit.msg)
			}
			os.Exit(exit.code)
		}
		os.Exit(1)
	}
}
