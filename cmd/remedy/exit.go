package main

import "fmt"

// exitError carries a non-zero status for a run that completed but must not
// report success. The output has already been printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
