// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"fmt"
)

// SyntaxError reports malformed source. It is fatal for the whole unit.
type SyntaxError struct {
	Line   int
	Column int
	// Text is the offending source text, empty at the end of input.
	Text string
	Msg  string
	// multiline is set when the source spans more than one line.
	multiline bool
}

func (e *SyntaxError) Error() string {
	msg := e.Msg
	if e.Text != "" {
		msg += fmt.Sprintf(" near %q", e.Text)
	}
	if e.multiline {
		return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, msg)
	}
	return fmt.Sprintf("column %d: %s", e.Column, msg)
}
