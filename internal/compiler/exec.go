package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/belfry-bio/belfry/internal/config"
)

// Exec invokes the external compiler binary. The document is written to
// stdin; a successful run prints the graph as JSON on stdout. A non-zero
// exit is a compilation failure with the diagnostic on stderr.
type Exec struct {
	Command string
	Args    []string
}

// NewExec builds an Exec from compiler configuration.
func NewExec(cfg config.CompilerConfig) *Exec {
	return &Exec{Command: cfg.Command, Args: cfg.Args}
}

// Compile implements Compiler.
func (e *Exec) Compile(ctx context.Context, sourceName string, document []byte) (*Graph, error) {
	args := append(append([]string{}, e.Args...), "--name", sourceName)
	cmd := exec.CommandContext(ctx, e.Command, args...)
	cmd.Stdin = bytes.NewReader(document)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("compiler: %s: %w", e.Command, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &CompileError{Output: strings.TrimSpace(stderr.String())}
		}
		return nil, fmt.Errorf("compiler: run %s: %w", e.Command, err)
	}

	var graph Graph
	if err := json.Unmarshal(stdout.Bytes(), &graph); err != nil {
		return nil, fmt.Errorf("compiler: decode output of %s: %w", e.Command, err)
	}
	if graph.Name == "" {
		graph.Name = sourceName
	}
	return &graph, nil
}
