package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
)

const usage = `usage: proxlock <command>

commands:
  daemon [--config path] [--debug]   run the monitoring daemon
  status                             show current presence state
  devices                            list paired devices
  select <addr|index>                monitor a device
  disable                            stop monitoring
  timeout <3|5|15>                   set the confirmation timeout in seconds
  quit                               stop the daemon`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "daemon":
		flags := pflag.NewFlagSet("daemon", pflag.ExitOnError)
		cfgPath := flags.String("config", configPath(), "path to config file")
		debug := flags.Bool("debug", false, "enable debug logging")
		flags.Parse(os.Args[2:])

		var cfg Config
		cfg, err = loadConfig(*cfgPath)
		if err != nil {
			break
		}
		if *debug {
			cfg.Debug = true
		}
		err = runDaemon(cfg)
	case "status":
		err = runStatus()
	case "devices":
		err = runDevices()
	case "select":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: proxlock select <addr|index>")
			os.Exit(1)
		}
		err = runSelect(os.Args[2])
	case "disable":
		err = runDisable()
	case "timeout":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: proxlock timeout <3|5|15>")
			os.Exit(1)
		}
		var seconds int
		seconds, err = strconv.Atoi(os.Args[2])
		if err != nil {
			err = fmt.Errorf("timeout must be a number of seconds: %w", err)
			break
		}
		err = runTimeout(seconds)
	case "quit":
		err = runQuit()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
