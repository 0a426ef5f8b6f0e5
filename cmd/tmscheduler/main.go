package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	cmd := &cobra.Command{
		Use:   "tmscheduler",
		Short: "Programmable packet scheduler for a bmv2-style traffic manager",
		Args:  cobra.NoArgs,
		// Silence cobra's own error printing; main prints it instead.
		SilenceErrors: true,
	}

	cmd.AddCommand(newRunCmd(), newVersionCmd())

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
