// Command file-hash computes MD5/SHA-1/SHA-256 digests of a file in fixed
// chunks, the simplest of the toolkit's "external collaborator" readers.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yongjin04/diskforensics/internal/config"
	"github.com/yongjin04/diskforensics/internal/ferr"
	"github.com/yongjin04/diskforensics/internal/hashutil"
	"github.com/yongjin04/diskforensics/internal/logging"
)

func main() {
	var algos []string

	root := &cobra.Command{
		Use:           "file-hash <path>",
		Short:         "Compute MD5/SHA-1/SHA-256 digests of a file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], algos)
		},
	}
	config.BindFlags(root.Flags())
	root.Flags().StringSliceVar(&algos, "algo", []string{"md5", "sha1", "sha256"}, "digests to compute")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(ferr.ExitCode(err))
	}
}

func run(cmd *cobra.Command, path string, algoNames []string) error {
	settings, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := logging.Setup(logging.Options{Level: settings.LogLevel, LogFile: settings.LogFile})
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return &ferr.UsageError{Reason: fmt.Sprintf("open %s: %v", path, err)}
	}
	defer f.Close()

	algs := make([]hashutil.Algorithm, 0, len(algoNames))
	for _, name := range algoNames {
		algs = append(algs, hashutil.Algorithm(strings.ToLower(strings.TrimSpace(name))))
	}

	sums, err := hashutil.SumAll(f, algs)
	if err != nil {
		logging.ErrorFatal(logger, err)
		return err
	}

	for _, a := range algs {
		fmt.Fprintf(cmd.OutOrStdout(), "%-8s%s\n", a, sums[a])
	}
	return nil
}
