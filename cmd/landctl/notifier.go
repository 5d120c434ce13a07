package main

import (
	"fmt"
	"io"
)

// termNotifier prints the editor's user-facing messages.
type termNotifier struct {
	w io.Writer
}

func (n termNotifier) Success(msg string) { fmt.Fprintln(n.w, "ok:", msg) }
func (n termNotifier) Error(msg string)   { fmt.Fprintln(n.w, "error:", msg) }
