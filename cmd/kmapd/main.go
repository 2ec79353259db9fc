package main

import (
	"fmt"
	"os"

	"github.com/brightpath-consulting/kmap/internal/cli"
	"github.com/brightpath-consulting/kmap/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kmapd",
		Short: "Knowledge mapping daemon and CLI",
		Long:  "Daemon that maps completed document analyses into searchable knowledge, plus admin tooling",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.ProcessCmd())
	rootCmd.AddCommand(admin.TaxonomyCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
