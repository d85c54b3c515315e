package main

import (
	"fmt"
	"os"
	"runtime/debug"
)

func main() {
	cli := parseArgs(os.Args[1:])

	switch cli.mode {
	case runMode:
		runMain(cli.Run)
	case checkMode:
		checkMain(cli.Check)
	case traceMode:
		traceMain(cli.Trace)
	case initConfigMode:
		initConfigMain(cli.InitConfig)
	case versionMode:
		fmt.Println("ebtks", version())
	}
}

func version() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi.Main.Version == "" {
		return "(devel)"
	}
	return bi.Main.Version
}
