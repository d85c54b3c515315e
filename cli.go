package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"ebtks/emu/log"
)

type mode byte

const (
	runMode        mode = iota // Run a scenario
	checkMode                  // Run built-in checks
	traceMode                  // Print a JSON trace
	initConfigMode             // Write the default configuration
	versionMode                // Show ebtks version
)

type (
	CLI struct {
		Run        Run        `cmd:"" help:"Run a scenario on the simulated backplane."`
		Check      Check      `cmd:"" help:"Run the built-in checks."`
		Trace      Trace      `cmd:"" help:"Print a bus trace saved in JSON."`
		InitConfig InitConfig `cmd:"" help:"Write the default configuration to the user config directory." name:"init-config"`
		Version    Version    `cmd:"" help:"Show ebtks version."`

		Log logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`

		mode mode
	}

	Run struct {
		Scenario string `arg:"" name:"scenario.toml" help:"${scenario_help}" optional:"" type:"existingfile"`

		Trace       *outfile `name:"trace" help:"Write the bus trace." placeholder:"FILE|stdout|stderr"`
		TraceFormat string   `name:"trace-format" help:"Bus trace format." enum:"text,json" default:"text"`
		Profile     string   `name:"profile" help:"${profile_help}" type:"path" placeholder:"DIR"`
		ProfileMode string   `name:"profile-mode" help:"Profile kind." enum:"cpu,mem" default:"cpu"`
	}

	Check struct {
		Names []string `arg:"" name:"check" help:"Checks to run, all by default." optional:""`
		List  bool     `name:"list" help:"List the built-in checks and exit."`
	}

	Trace struct {
		File   string `arg:"" name:"trace.json" type:"existingfile"`
		Driven bool   `name:"driven" help:"Only show the cycles the controller drove."`
	}

	InitConfig struct {
		Force bool `name:"force" help:"Overwrite an existing configuration."`
	}

	Version struct{}
)

var vars = kong.Vars{
	"scenario_help": "Scenario to run, the configuration in the user config directory by default.",
	"profile_help":  "Write a profile of the run in this directory.",
	"log_help":      "Enable logging for specified modules.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("ebtks"),
		kong.Description("HP-85 bus controller emulation engine."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	switch cmd := ctx.Command(); {
	case strings.HasPrefix(cmd, "check"):
		cfg.mode = checkMode
	case strings.HasPrefix(cmd, "trace"):
		cfg.mode = traceMode
	case cmd == "init-config":
		cfg.mode = initConfigMode
	case cmd == "version":
		cfg.mode = versionMode
	default:
		cfg.mode = runMode
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	if strings.HasPrefix(ctx.Command(), "run") || strings.HasPrefix(ctx.Command(), "check") {
		loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s

  As a special case, the following values are accepted:
    - no                     Disable all logging.
    - all                    Enable all logs.
`
		var strs []string
		for _, m := range log.ModuleNames() {
			strs = append(strs, "    - "+m)
		}

		fmt.Fprintf(os.Stderr, loggingHelp, strings.Join(strs, "\n"))
	}

	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	nolog := false
	allLogs := false

	tok := ctx.Scan.Pop()
	for _, v := range strings.Split(tok.Value.(string), ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return fmt.Errorf("unknown log module %s", v)
			}
			lm |= logModMask(mod.Mask())
		}
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if lm != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		lm = logModMask(log.ModuleMaskAll)
	}

	log.EnableDebugModules(log.ModuleMask(lm))
	log.SetOutputLevel(log.DebugLevel)
	return nil
}

type outfile struct {
	w     io.Writer
	name  string
	close func() error
}

// Decode decodes FILE|stdout|stderr into an io.WriteCloser
// that writes to that file.
//
// Implements kong.MapperValue interface.
func (f *outfile) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	f.name = tok.Value.(string)
	f.close = func() error { return nil }

	switch f.name {
	case "stdout":
		f.w = os.Stdout
	case "stderr":
		f.w = os.Stderr
	default:
		fd, err := os.Create(f.name)
		if err != nil {
			return err
		}
		f.w = fd
		f.close = fd.Close
	}
	return nil
}

func (f *outfile) String() string              { return f.name }
func (f *outfile) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *outfile) Close() error                { return f.close() }

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fatalf(format+".\n"+err.Error(), args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
