package main

import (
	"flag"
	"fmt"
	"os"

	"grimm.is/sixfence/cmd"
)

const defaultConfigFile = "/etc/sixfence/sixfence.hcl"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runFlags := flag.NewFlagSet("run", flag.ExitOnError)
		configFile := runFlags.String("config", defaultConfigFile, "Configuration file")
		runFlags.StringVar(configFile, "c", defaultConfigFile, "Configuration file (short)")

		dryRun := runFlags.Bool("dry-run", false, "Log ACL changes without applying them")
		runFlags.BoolVar(dryRun, "n", false, "Dry run (short)")

		debug := runFlags.Bool("debug", false, "Enable reconciliation decision tracing")
		runFlags.BoolVar(debug, "d", false, "Debug (short)")

		runFlags.Parse(os.Args[2:])

		if err := cmd.RunDaemon(*configFile, *dryRun, *debug); err != nil {
			fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
			os.Exit(1)
		}

	case "sweep":
		sweepFlags := flag.NewFlagSet("sweep", flag.ExitOnError)
		configFile := sweepFlags.String("config", defaultConfigFile, "Configuration file")
		sweepFlags.StringVar(configFile, "c", defaultConfigFile, "Configuration file (short)")

		dryRun := sweepFlags.Bool("dry-run", false, "Report what would be removed")
		sweepFlags.BoolVar(dryRun, "n", false, "Dry run (short)")

		sweepFlags.Parse(os.Args[2:])

		if err := cmd.RunSweep(*configFile, *dryRun); err != nil {
			fmt.Fprintf(os.Stderr, "Sweep failed: %v\n", err)
			os.Exit(1)
		}

	case "check":
		checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
		verbose := checkFlags.Bool("verbose", false, "Verbose output")
		checkFlags.BoolVar(verbose, "v", false, "Verbose output (short)")
		checkFlags.Parse(os.Args[2:])

		configFile := defaultConfigFile
		if len(checkFlags.Args()) > 0 {
			configFile = checkFlags.Arg(0)
		}

		if err := cmd.RunCheck(configFile, *verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Check failed: %v\n", err)
			os.Exit(1)
		}

	case "version":
		fmt.Println("sixfence " + version)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// version is overridden at build time via -ldflags.
var version = "dev"

func printUsage() {
	fmt.Println(`sixfence - reactive IPv6 source-validation ACL controller

Usage:
  sixfence run [-c config] [-n] [-d]    Run the controller daemon
  sixfence sweep [-c config] [-n]       Remove all managed ACLs and exit
  sixfence check [-v] <config-file>     Validate a configuration file
  sixfence version                      Print version
  sixfence help                         Show this help`)
}
