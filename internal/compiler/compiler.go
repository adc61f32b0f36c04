// Package compiler adapts the external graph compiler. Belfry never parses
// or validates the expression language itself; documents go to an external
// tool that either returns a compiled graph or a compilation error.
package compiler

import (
	"context"
	"errors"
)

// Graph is the compiled artifact returned by the external compiler.
type Graph struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Nodes       []string `json:"nodes"`
	Edges       []Edge   `json:"edges"`
}

// Edge is a single relation in a compiled graph.
type Edge struct {
	Source   string    `json:"source"`
	Relation string    `json:"relation"`
	Target   string    `json:"target"`
	Evidence string    `json:"evidence"`
	Citation *Citation `json:"citation,omitempty"`
}

// Citation is the provenance attached to an edge.
type Citation struct {
	Database  string `json:"db"`
	Reference string `json:"reference"`
	Title     string `json:"title"`
}

// CompileError is a structural or semantic failure reported by the compiler.
// It is permanent: the document itself is wrong and must be resubmitted.
// Any other error from a Compiler is infrastructure trouble and transient.
type CompileError struct {
	Output string
}

func (e *CompileError) Error() string {
	return "compiler: compilation failed: " + e.Output
}

// IsCompileError reports whether err is a permanent compilation failure.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// Compiler turns a source document into a Graph.
type Compiler interface {
	Compile(ctx context.Context, sourceName string, document []byte) (*Graph, error)
}
