// Command serial-bridge relays traffic between a real serial device and a
// virtual port opened by an application, logging both directions.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return fmt.Errorf("command required")
	}

	switch args[0] {
	case "bridge":
		return bridgeCommand(args[1:])
	case "mikon":
		return mikonCommand(args[1:])
	case "list-ports":
		return listPortsCommand(args[1:])
	case "release":
		return releaseCommand(args[1:])
	case "version":
		fmt.Println("serial-bridge", version)
		return nil
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: serial-bridge <command> [flags]

Commands:
  bridge       relay between a real port and a virtual port
  mikon        bridge preconfigured for the MIKON-207 (57600 8M1, flow control)
  list-ports   list serial ports on this system
  release      open and close a port to clear stale handles
  version      print the version

Flags may also be set through SERIAL_BRIDGE_* environment variables
(for example SERIAL_BRIDGE_BAUD_RATE=115200) or a --config file.
`)
}

func printFlags(w io.Writer, usage string, flags *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: %s\n\nFlags:\n%s", usage, flags.FlagUsages())
}
