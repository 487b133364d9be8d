// svcctl queries, starts and stops a background service through a
// named control backend.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/phoenix741/svcctl/internal/config"
	"github.com/phoenix741/svcctl/internal/control"
	"github.com/phoenix741/svcctl/internal/logging"

	// Control backends register themselves on import.
	_ "github.com/phoenix741/svcctl/internal/control/binder"
	_ "github.com/phoenix741/svcctl/internal/control/standard"
	_ "github.com/phoenix741/svcctl/internal/control/system"
)

var version = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, `svcctl %s — local service control

Usage:
  svcctl --service <id> [--backend <name>] <operation> [args]

Operations:
  status              print the service run state
  start               start the service
  stop                stop the service
  enable | disable    toggle whether the service may run
  exists              print whether the service is installed
  enabled             print whether the service may run
  info                print backend name, capabilities and block mode
  command <kind>      invoke a backend-specific generic command

Flags:
`, version)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nBackends: %v\n", control.Backends())
}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file path (default: platform location)")
	backend := flag.String("backend", "", "control backend name (overrides config)")
	serviceID := flag.StringP("service", "s", "", "service identity")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		return 2
	}
	if *serviceID == "" {
		fmt.Fprintln(os.Stderr, "svcctl: a service id is required (--service)")
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "svcctl: %v\n", err)
		return 1
	}
	if *backend == "" {
		*backend = cfg.Backend
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "svcctl: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctl, err := control.New(*backend, *serviceID, control.Options{
		RuntimeDir:     cfg.Control.RuntimeDir,
		AllowSpawn:     cfg.Control.AllowSpawn,
		AllowUnitStart: cfg.Control.AllowUnitStart,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "svcctl: %v\n", err)
		return 1
	}

	return dispatch(ctl, flag.Arg(0), flag.Args()[1:])
}

func dispatch(ctl control.ServiceControl, op string, args []string) int {
	switch op {
	case "status":
		status := ctl.Status()
		fmt.Println(status)
		if status == control.StatusUnknown {
			return fail(ctl)
		}
		return 0

	case "exists":
		fmt.Println(ctl.ServiceExists())
		return 0

	case "enabled":
		fmt.Println(ctl.IsEnabled())
		return 0

	case "start":
		if !require(ctl, control.SupportsStart, "start") {
			return 1
		}
		if !ctl.Start() {
			return fail(ctl)
		}
		if ctl.Blocking() != control.Blocking {
			fmt.Println("start requested; poll status for confirmation")
		} else {
			fmt.Println("started")
		}
		return 0

	case "stop":
		if !require(ctl, control.SupportsStop, "stop") {
			return 1
		}
		if !ctl.Stop() {
			return fail(ctl)
		}
		if ctl.Blocking() != control.Blocking {
			fmt.Println("stop requested; poll status for confirmation")
		} else {
			fmt.Println("stopped")
		}
		return 0

	case "enable", "disable":
		if !require(ctl, control.SupportsEnabled, op) {
			return 1
		}
		if !ctl.SetEnabled(op == "enable") {
			return fail(ctl)
		}
		fmt.Println(op + "d")
		return 0

	case "info":
		fmt.Printf("backend:      %s\n", ctl.Backend())
		fmt.Printf("capabilities: %s\n", ctl.SupportFlags())
		fmt.Printf("blocking:     %s\n", ctl.Blocking())
		return 0

	case "command":
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "svcctl: command requires a kind argument")
			return 2
		}
		extra := make([]any, len(args)-1)
		for i, a := range args[1:] {
			extra[i] = a
		}
		if result := ctl.CallGenericCommand(args[0], extra...); result != nil {
			fmt.Println(result)
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "svcctl: unknown operation %q\n", op)
		usage()
		return 2
	}
}

func require(ctl control.ServiceControl, need control.Capability, op string) bool {
	if !ctl.SupportFlags().Has(need) {
		fmt.Fprintf(os.Stderr, "svcctl: the %s backend does not support %s\n", ctl.Backend(), op)
		return false
	}
	return true
}

func fail(ctl control.ServiceControl) int {
	if msg := ctl.LastError(); msg != "" {
		fmt.Fprintf(os.Stderr, "svcctl: %s\n", msg)
	}
	return 1
}
