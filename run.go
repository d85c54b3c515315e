package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/pkg/profile"

	"ebtks/emu"
	"ebtks/emu/log"
	"ebtks/hw/trace"
)

// runMain runs a scenario and reports its outcome.
func runMain(args Run) {
	cfg := emu.LoadConfigOrDefault()
	if args.Scenario != "" {
		var err error
		cfg, err = emu.LoadConfig(args.Scenario)
		checkf(err, "failed to load scenario")
	}

	m, err := emu.PowerUp(cfg)
	checkf(err, "failed to start machine")
	log.AddContext(m)
	defer log.RemoveContext(m)

	rep, runErr := runProfiled(m, args.Profile, args.ProfileMode)

	if args.Trace != nil {
		recs := m.Records()
		switch args.TraceFormat {
		case "json":
			err = trace.EncodeJSON(args.Trace, recs)
		default:
			err = trace.WriteText(args.Trace, recs)
		}
		checkf(err, "failed to write trace")
		checkf(args.Trace.Close(), "failed to write trace")
	}

	printReport(rep)
	if runErr != nil {
		for _, v := range rep.Violations {
			fmt.Fprintln(os.Stderr, "violation:", v)
		}
		fatalf("scenario failed:\n%v", runErr)
	}
}

// runProfiled runs the scenario, profiling it into dir if not empty. The
// profile is complete on return, whatever the outcome of the run.
func runProfiled(m *emu.Machine, dir, mode string) (*emu.Report, error) {
	if dir == "" {
		return m.Run()
	}

	kind := profile.CPUProfile
	if mode == "mem" {
		kind = profile.MemProfile
	}
	p := profile.Start(kind, profile.ProfilePath(dir), profile.NoShutdownHook)
	defer p.Stop()
	return m.Run()
}

func printReport(rep *emu.Report) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for i, st := range rep.Steps {
		fmt.Fprintf(tw, "%d\t%s\t%04X\t", i+1, st.Step.Op, st.Step.Addr)
		if len(st.Data) > 0 {
			fmt.Fprintf(tw, "% X", st.Data)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()

	bus, host := rep.Bus, rep.Host
	fmt.Printf("cycles: %d (%dns)  host at %04X  controller at %04X\n", host.Cycle, host.Now, host.HostAddr, bus.Addr)
	fmt.Printf("interrupts: serviced %d  lost %d  vectors % X\n", bus.IRQ.Serviced, bus.IRQ.Lost, rep.Vectors)
	fmt.Printf("dma: transfers %d  refresh pauses %d\n", bus.DMA.Transfers, bus.DMA.Refreshes)
	fmt.Printf("violations: %d\n", len(rep.Violations))
}

func checkMain(args Check) {
	if args.List {
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, c := range emu.Checks {
			fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Help)
		}
		tw.Flush()
		return
	}

	checks := emu.Checks
	if len(args.Names) > 0 {
		checks = nil
		for _, name := range args.Names {
			c, ok := emu.CheckByName(name)
			if !ok {
				fatalf("unknown check %q", name)
			}
			checks = append(checks, c)
		}
	}

	results, err := emu.RunChecks(checks)
	for _, res := range results {
		status := "ok"
		if res.Err != nil {
			status = "FAIL"
		}
		fmt.Printf("%-4s  %-20s %v\n", status, res.Name, res.Elapsed)
		if res.Err != nil {
			fmt.Printf("      %v\n", res.Err)
		}
	}
	if err != nil {
		os.Exit(1)
	}
}

func traceMain(args Trace) {
	f, err := os.Open(args.File)
	checkf(err, "failed to open trace")
	defer f.Close()

	recs, err := trace.DecodeJSON(f)
	checkf(err, "failed to read trace")

	if args.Driven {
		var driven []trace.Record
		for _, rec := range recs {
			if rec.Aux&trace.AuxDriven != 0 {
				driven = append(driven, rec)
			}
		}
		recs = driven
	}
	checkf(trace.WriteText(os.Stdout, recs), "failed to print trace")
}

func initConfigMain(args InitConfig) {
	path := filepath.Join(emu.ConfigDir(), "config.toml")
	if _, err := os.Stat(path); err == nil && !args.Force {
		fatalf("%s already exists, use --force to overwrite it", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		checkf(err, "failed to check configuration")
	}
	checkf(emu.SaveConfig(emu.DefaultConfig()), "failed to save configuration")
	fmt.Println("configuration written to", path)
}
