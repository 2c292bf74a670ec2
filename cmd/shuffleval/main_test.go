package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbandonedTrialsErrorIsDetectable(t *testing.T) {
	err := fmt.Errorf("run failed: %w", &AbandonedTrialsError{Message: "3 trial(s) abandoned"})

	var abandonedErr *AbandonedTrialsError
	require.True(t, errors.As(err, &abandonedErr))
	assert.Contains(t, abandonedErr.Error(), "abandoned")
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "status", "retry", "reset", "check", "new"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}
