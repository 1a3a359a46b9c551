// emod-layout-grid exposes the built-in rank grid over the subprocess
// engine protocol: graph JSON on stdin, laid out graph JSON on stdout.
// It exists so the exec engine path can be exercised without a third
// party layout binary installed.
package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/emodeling/emod/emlayout/emelk"
	"github.com/emodeling/emod/emlayout/emgrid"
	"github.com/emodeling/emod/lib/xmain"
)

func main() {
	xmain.Main(run)
}

func run(ctx context.Context, ms *xmain.State) error {
	input, err := ms.ReadPath("-")
	if err != nil {
		return err
	}

	var g emelk.Graph
	if err := json.Unmarshal(input, &g); err != nil {
		return fmt.Errorf("failed to unmarshal graph: %w", err)
	}

	out, err := emgrid.Engine{}.Layout(ctx, &g)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return ms.WritePath("-", raw)
}
