// Package main provides the medic CLI.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	medic "github.com/everydev1618/gomedic"
)

var (
	version = "dev"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "validate":
		validateCmd(args)
	case "version":
		fmt.Printf("medic %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Medic - Component Supervision Core

Usage:
  medic <command> [options]

Commands:
  validate  Validate a medic.yaml manifest
  version   Print version information
  help      Show this help message

Examples:
  medic validate medic.yaml
  medic validate medic.yaml --verbose

Run 'medic <command> --help' for more information on a command.`)
}

// validateCmd validates a manifest file.
func validateCmd(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "Show detailed validation results")

	fs.Usage = func() {
		fmt.Println(`Usage: medic validate <medic.yaml> [options]

Validate a manifest file without assembling a supervisor.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  medic validate medic.yaml
  medic validate medic.yaml --verbose`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: no manifest file specified")
		fs.Usage()
		os.Exit(1)
	}

	file := fs.Arg(0)

	m, err := medic.LoadManifest(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	interval, err := m.MonitorInterval()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: bad interval %q: %v\n", m.Interval, err)
		os.Exit(1)
	}

	if m.Monitor != "" {
		if _, ok := m.Components[m.Monitor]; !ok {
			fmt.Fprintf(os.Stderr, "Validation failed: monitor %q is not a declared component\n", m.Monitor)
			os.Exit(1)
		}
	}

	for _, job := range m.Jobs {
		if _, ok := m.Components[job.Component]; !ok {
			fmt.Fprintf(os.Stderr, "Validation failed: job %q targets unknown component %q\n", job.Name, job.Component)
			os.Exit(1)
		}
	}

	if *verbose {
		fmt.Printf("File: %s\n", file)
		if m.Monitor != "" {
			fmt.Printf("Monitor: %s (interval %s)\n", m.Monitor, interval)
		}
		fmt.Println()

		names := make([]string, 0, len(m.Components))
		for name := range m.Components {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Printf("Components (%d):\n", len(m.Components))
		for _, name := range names {
			fmt.Printf("  - %s: %d config keys\n", name, len(m.Components[name]))
		}
		fmt.Println()

		fmt.Printf("Jobs (%d):\n", len(m.Jobs))
		for _, job := range m.Jobs {
			fmt.Printf("  - %s: %q -> %s\n", job.Name, job.Schedule, job.Component)
		}
	}

	fmt.Printf("Valid: %s\n", file)
}
