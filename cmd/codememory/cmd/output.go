package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kapillamba4/codememory/internal/dispatch"
)

// printJSON writes v to out as indented JSON.
func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// errRecordError converts a dispatch error record into a Go error for cobra's RunE.
func errRecordError(rec *dispatch.ErrorRecord) error {
	if rec == nil {
		return nil
	}
	return fmt.Errorf("%s: %s", rec.Type, rec.Message)
}
