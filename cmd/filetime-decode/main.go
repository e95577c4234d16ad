// Command filetime-decode renders Windows FILETIME tick counts as human
// timestamps, another "external collaborator" reader with no volume I/O.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yongjin04/diskforensics/internal/config"
	"github.com/yongjin04/diskforensics/internal/ferr"
	"github.com/yongjin04/diskforensics/internal/filetime"
)

func main() {
	root := &cobra.Command{
		Use:           "filetime-decode <ticks...>",
		Short:         "Decode one or more raw FILETIME tick counts",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args)
		},
	}
	config.BindFlags(root.Flags())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(ferr.ExitCode(err))
	}
}

func run(cmd *cobra.Command, args []string) error {
	settings, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	offset := filetime.DisplayOffset(settings.TZOffsetMinutes)

	for _, arg := range args {
		ticks, err := strconv.ParseUint(arg, 16, 64)
		if err != nil {
			return &ferr.UsageError{Reason: fmt.Sprintf("%q is not a valid hex FILETIME tick count: %v", arg, err)}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-20s%s\n", arg, filetime.Render(ticks, offset))
	}
	return nil
}
