package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"cdr.dev/slog"
	"github.com/spf13/pflag"

	"oss.terrastruct.com/xjson"

	"github.com/emodeling/emod/emgraph"
	"github.com/emodeling/emod/emlayout"
	"github.com/emodeling/emod/emlayout/emelk"
	"github.com/emodeling/emod/emlayout/emgrid"
	"github.com/emodeling/emod/emserve"
	"github.com/emodeling/emod/lib/background"
	"github.com/emodeling/emod/lib/geo"
	"github.com/emodeling/emod/lib/log"
	timelib "github.com/emodeling/emod/lib/time"
	"github.com/emodeling/emod/lib/version"
	"github.com/emodeling/emod/lib/xmain"
)

func main() {
	xmain.Main(run)
}

func run(ctx context.Context, ms *xmain.State) (err error) {
	watchFlag, err := ms.Opts.Bool("EMOD_WATCH", "watch", "w", false, "serve the layout over HTTP and recompute whenever the input file changes. Use $HOST and $PORT to specify the listening address.\n(default localhost:0, which will open on a randomly available local port).")
	if err != nil {
		return err
	}
	hostFlag := ms.Opts.String("HOST", "host", "h", "localhost", "host listening address when used with watch")
	portFlag := ms.Opts.String("PORT", "port", "p", "0", "port listening address when used with watch")
	browserFlag, err := ms.Opts.Bool("EMOD_BROWSER", "browser", "b", true, "open the viewer in a browser once the first watched layout lands")
	if err != nil {
		return err
	}
	engineFlag := ms.Opts.String("EMOD_ENGINE", "engine", "e", "grid", `the layout engine used. See "emod engine".`)
	directionFlag := ms.Opts.String("EMOD_DIRECTION", "direction", "", "right", "flow of the slice sequence: right, left, down or up")
	gridFlag, err := ms.Opts.Float64("EMOD_GRID", "grid", "", emlayout.DefaultGridUnit, "grid unit positions and route points snap to")
	if err != nil {
		return err
	}
	debugFlag, err := ms.Opts.Bool("DEBUG", "debug", "d", false, "print debug logs.")
	if err != nil {
		return err
	}
	versionFlag, err := ms.Opts.Bool("", "version", "v", false, "get the version")
	if err != nil {
		return err
	}

	err = ms.Opts.Flags.Parse(ms.Opts.Args)
	if !errors.Is(err, pflag.ErrHelp) && err != nil {
		return xmain.UsageErrorf("failed to parse flags: %v", err)
	}

	if errors.Is(err, pflag.ErrHelp) {
		help(ms)
		return nil
	}

	if len(ms.Opts.Flags.Args()) > 0 {
		switch ms.Opts.Flags.Arg(0) {
		case "engine":
			engineCmd(ms)
			return nil
		case "version":
			if len(ms.Opts.Flags.Args()) > 1 {
				return xmain.UsageErrorf("version subcommand accepts no arguments")
			}
			fmt.Println(version.Version)
			return nil
		}
	}

	if *debugFlag {
		ms.Env.Setenv("DEBUG", "1")
		ctx = log.Leveled(log.Stderr(ctx), slog.LevelDebug)
	} else {
		ctx = xmain.DiscardSlog(ctx)
	}

	var inputPath string
	var outputPath string

	if len(ms.Opts.Flags.Args()) == 0 {
		if versionFlag != nil && *versionFlag {
			fmt.Println(version.Version)
			return nil
		}
		help(ms)
		return nil
	} else if len(ms.Opts.Flags.Args()) >= 3 {
		return xmain.UsageErrorf("too many arguments passed")
	}

	inputPath = ms.Opts.Flags.Arg(0)
	if len(ms.Opts.Flags.Args()) >= 2 {
		outputPath = ms.Opts.Flags.Arg(1)
	} else if inputPath == "-" {
		outputPath = "-"
	} else {
		outputPath = renameExt(inputPath, ".layout.json")
	}

	layoutOpts := &emlayout.Opts{
		GridUnit:  *gridFlag,
		Direction: emelk.Direction(strings.ToUpper(*directionFlag)),
	}
	switch layoutOpts.Direction {
	case emelk.Right, emelk.Left, emelk.Down, emelk.Up:
	default:
		return xmain.UsageErrorf("invalid --direction %q. The available options are: right, left, down, up.", *directionFlag)
	}

	engine, err := pickEngine(*engineFlag)
	if err != nil {
		return err
	}

	if *watchFlag {
		if inputPath == "-" {
			return xmain.UsageErrorf("-w[atch] cannot be combined with reading input from stdin")
		}
		if len(ms.Opts.Flags.Args()) >= 2 {
			return xmain.UsageErrorf("-w[atch] does not write an output file")
		}
		ms.Env.Setenv("LOG_TIMESTAMPS", "1")
		s, err := emserve.New(ctx, ms.Log, ms.Env, emserve.ServeOpts{
			Host:        *hostFlag,
			Port:        *portFlag,
			WatchPath:   inputPath,
			OpenBrowser: *browserFlag,
			Engine:      engine,
			Layout:      layoutOpts,
		})
		if err != nil {
			return err
		}
		return s.Run()
	}

	ctx, cancel := timelib.WithTimeout(ctx, time.Minute*2)
	defer cancel()

	err = layout(ctx, ms, engine, layoutOpts, inputPath, outputPath)
	if err != nil {
		return err
	}
	ms.Log.Success.Printf("successfully laid out %v to %v", inputPath, outputPath)
	return nil
}

func layout(ctx context.Context, ms *xmain.State, engine emelk.Engine, opts *emlayout.Opts, inputPath, outputPath string) error {
	input, err := ms.ReadPath(inputPath)
	if err != nil {
		return err
	}

	snap, err := emgraph.ParseSnapshot(ctx, input)
	if err != nil {
		return err
	}

	cancel := background.Repeat(func() {
		ms.Log.Info.Printf("computing layout...")
	}, time.Second*5)
	defer cancel()

	res, err := emlayout.Compute(ctx, engine, snap, opts)
	cancel()
	if err != nil {
		return err
	}

	out := xjson.Marshal(layoutFile{
		Positions:  res.Positions,
		EdgeRoutes: flattenRoutes(res.Routes),
	})
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return ms.WritePath(outputPath, out)
}

// layoutFile is the one-shot output: the same positions and flattened
// edge routes the live protocol broadcasts, minus the envelope.
type layoutFile struct {
	Positions  map[string]*geo.Point `json:"positions"`
	EdgeRoutes map[string][]float64  `json:"edgeRoutes"`
}

func flattenRoutes(routes map[string]geo.Route) map[string][]float64 {
	flat := make(map[string][]float64, len(routes))
	for id, route := range routes {
		flat[id] = route.Flatten()
	}
	return flat
}

// engineBinPrefix names engine executables so bare engine names resolve
// like "elk" -> emod-layout-elk in $PATH.
const engineBinPrefix = "emod-layout-"

func pickEngine(name string) (emelk.Engine, error) {
	switch {
	case name == "" || name == "grid":
		return emgrid.Engine{}, nil
	case strings.HasSuffix(name, ".js"):
		src, err := os.ReadFile(name)
		if err != nil {
			return nil, err
		}
		return emelk.NewScriptEngine(string(src))
	default:
		path, err := exec.LookPath(engineBinPrefix + name)
		if errors.Is(err, exec.ErrNotFound) {
			path, err = exec.LookPath(name)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, engineNotFound(name)
		} else if err != nil {
			return nil, err
		}
		return emelk.NewExecEngine(path), nil
	}
}

// newExt must include leading .
func renameExt(fp string, newExt string) string {
	ext := filepath.Ext(fp)
	if ext == "" {
		return fp + newExt
	} else {
		return strings.TrimSuffix(fp, ext) + newExt
	}
}
