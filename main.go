package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"edtrack/internal/cli"
	"edtrack/internal/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Set up global panic handler first
	defer func() {
		if r := recover(); r != nil {
			log.Error("GLOBAL PANIC recovered", "error", r, "stack", string(debug.Stack()))
			fmt.Fprintf(os.Stderr, "edtrack crashed: %v\n", r)
			log.Close()
			os.Exit(1)
		}
	}()
	defer log.Close()

	cli.Execute(cli.BuildInfo{Version: version, Commit: commit, Date: date})
}
