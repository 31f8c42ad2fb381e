package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"index", "search", "docs", "history", "stats", "status", "version"} {
		assert.True(t, names[want], "expected subcommand %q", want)
	}
}

func TestNewRootCmd_Use(t *testing.T) {
	root := NewRootCmd()
	assert.Equal(t, "codememory", root.Use)
}
