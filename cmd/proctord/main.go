// proctord is the interview-integrity agent CLI. The run command
// mounts a full session over a simulated host surface driven from
// stdin, which is how the integrity pipeline is exercised without an
// embedding page.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"proctord/internal/config"
)

var (
	configPath  = flag.String("config", "", "path to config file (TOML)")
	interviewID = flag.String("interview", "", "interview session id")
	serverURL   = flag.String("server", "", "backend base URL (overrides config)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	switch cmd := flag.Arg(0); cmd {
	case "run":
		cmdRun()
	case "config":
		cmdConfig()
	case "events":
		if flag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "Usage: proctord events <session-id>")
			os.Exit(1)
		}
		cmdEvents(flag.Arg(1))
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `proctord - interview integrity agent

Usage: proctord [options] <command> [args]

Commands:
  run                 Mount an interview session driven from stdin
  config              Print the effective configuration
  events <session>    Dump archived activity events for a session
  help                Show this help message

Options:
  -config <path>      Path to config file (TOML)
  -interview <id>     Interview session id (required for run)
  -server <url>       Backend base URL, overrides the config file`)
}

// loadConfig resolves the effective configuration from defaults, the
// optional config file, and command-line overrides.
func loadConfig() *config.Config {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *serverURL != "" {
		cfg.Server.BaseURL = *serverURL
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func cmdConfig() {
	cfg := loadConfig()
	if err := toml.NewEncoder(os.Stdout).Encode(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error printing config: %v\n", err)
		os.Exit(1)
	}
}
