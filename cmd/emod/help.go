package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/emodeling/emod/lib/version"
	"github.com/emodeling/emod/lib/xexec"
	"github.com/emodeling/emod/lib/xmain"
)

func help(ms *xmain.State) {
	fmt.Fprintf(ms.Stdout, `%[1]s %[2]s
Usage:
  %[1]s [--watch] [--engine=grid] model.json [model.layout.json]
  %[1]s engine

%[1]s computes the layout of the event model in model.json and writes the
node positions and edge routes to model.layout.json.
Use - to have %[1]s read from stdin or write to stdout.

With --watch, %[1]s serves the layout over HTTP instead and recomputes it
whenever model.json changes.

Flags:
%[3]s

Subcommands:
  %[1]s engine - Describe the available layout engines
  %[1]s version - Print the version

See more docs at https://github.com/emodeling/emod
`, filepath.Base(ms.Name), version.Version, ms.Opts.Help())
}

func engineCmd(ms *xmain.State) {
	var found []string
	matches, err := xexec.SearchPath(engineBinPrefix)
	if err == nil {
		for _, m := range matches {
			name := strings.TrimPrefix(filepath.Base(m), engineBinPrefix)
			found = append(found, fmt.Sprintf("  %s (%s)", name, humanPath(m)))
		}
	}
	discovered := ""
	if len(found) > 0 {
		discovered = fmt.Sprintf("\nEngine executables found in $PATH:\n%s\n", strings.Join(found, "\n"))
	}

	fmt.Fprintf(ms.Stdout, `Available layout engines:

grid (built-in) - Deterministic rank grid. Slices become columns and nodes
stack within them by category rank.
*.js - A JavaScript bundle run in an embedded VM. The bundle must define a
global layout(graph) function taking and returning the JSON graph, e.g. a
bundled elkjs wrapper.
executable - Any command on $PATH, or a path to one, that reads the JSON
graph on stdin and writes the laid out graph to stdout. A bare name like
"elk" resolves to %[2]selk in $PATH.
%[3]s
Example:
  %[1]s --engine=elk.js --watch model.json

To use a particular engine persistently, set $EMOD_ENGINE.
`, filepath.Base(ms.Name), engineBinPrefix, discovered)
}

func engineNotFound(name string) error {
	return xmain.UsageErrorf(`engine "%s" is not bundled and could not be found in your $PATH.
The available options are: grid, a path to a .js bundle, or a layout executable.
For details on each option, run "emod engine".`, name)
}

func humanPath(fp string) string {
	if strings.HasPrefix(fp, os.Getenv("HOME")) {
		return filepath.Join("~", strings.TrimPrefix(fp, os.Getenv("HOME")))
	}
	return fp
}
