package main

import (
	"fmt"
	"os"

	"github.com/tphakala/auditlog-go/cmd"
	"github.com/tphakala/auditlog-go/internal/conf"
	"github.com/tphakala/auditlog-go/internal/logging"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	rootCmd := cmd.RootCommand(settings)
	err = rootCmd.Execute()
	logging.Shutdown()
	if err != nil {
		os.Exit(1)
	}
}
