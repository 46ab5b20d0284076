package migrate

import "fmt"

// UnknownInputError reports an answer outside the accepted prompt tokens.
// The process treats it as fatal so a stray keystroke never commits a
// decision.
type UnknownInputError struct {
	Input string
}

func (e *UnknownInputError) Error() string {
	return fmt.Sprintf("unknown input %q", e.Input)
}
