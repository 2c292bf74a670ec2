package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess   = 0 // Every trial reached a terminal success state
	ExitAbandoned = 1 // Run finished but some trials were abandoned
	ExitError     = 2 // Configuration or runtime error
)

// AbandonedTrialsError indicates that an experiment finished, but one or
// more trials were abandoned after their retry.
type AbandonedTrialsError struct {
	Message string
}

func (e *AbandonedTrialsError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var abandonedErr *AbandonedTrialsError
		if errors.As(err, &abandonedErr) {
			os.Exit(ExitAbandoned)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
