package emelk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"oss.terrastruct.com/xdefer"

	timelib "github.com/emodeling/emod/lib/time"
)

// ExecEngine delegates layout to a subprocess.
//
// The protocol works as follows.
//  1. The binary is invoked with the json marshalled Graph on stdin.
//  2. The stdout of the binary is unmarshalled into the laid out Graph.
//
// If any errors occur the binary exits with a non zero status code and
// writes the error to stderr.
type ExecEngine struct {
	path string
	args []string
}

func NewExecEngine(path string, args ...string) *ExecEngine {
	return &ExecEngine{path: path, args: args}
}

func (e *ExecEngine) Layout(ctx context.Context, g *Graph) (_ *Graph, err error) {
	ctx, cancel := timelib.WithTimeout(ctx, time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.path, e.args...)
	defer xdefer.Errorf(&err, "failed to run %v", cmd.Args)

	raw, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}

	buffer := bytes.Buffer{}
	buffer.Write(raw)
	cmd.Stdin = &buffer

	stdout, err := cmd.Output()
	if err != nil {
		ee := &exec.ExitError{}
		if errors.As(err, &ee) && len(ee.Stderr) > 0 {
			return nil, fmt.Errorf("%v\nstderr:\n%s", ee, ee.Stderr)
		}
		return nil, err
	}

	var out Graph
	if err := json.Unmarshal(stdout, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json: %w", err)
	}
	return &out, nil
}
