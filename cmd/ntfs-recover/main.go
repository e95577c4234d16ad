// Command ntfs-recover scans an NTFS volume's Master File Table for
// deleted file records and recovers their content to an output directory,
// or just reports what it found when --scan-only is set.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/yongjin04/diskforensics/internal/config"
	"github.com/yongjin04/diskforensics/internal/device"
	"github.com/yongjin04/diskforensics/internal/ferr"
	"github.com/yongjin04/diskforensics/internal/logging"
	"github.com/yongjin04/diskforensics/internal/mbr"
	"github.com/yongjin04/diskforensics/internal/ntfsrecover"
	"github.com/yongjin04/diskforensics/internal/volreader"
)

func main() {
	var (
		listDevices bool
		scanOnly    bool
		outputDir   string
		partition   int
	)

	root := &cobra.Command{
		Use:           "ntfs-recover [path]",
		Short:         "Recover deleted files from an NTFS volume's MFT",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listDevices {
				return runListDevices(cmd)
			}
			if len(args) == 0 {
				return &ferr.UsageError{Reason: "ntfs-recover requires a device or image path (or --list-devices)"}
			}
			return run(cmd, args[0], partition, scanOnly, outputDir)
		},
	}
	config.BindFlags(root.Flags())
	root.Flags().BoolVar(&listDevices, "list-devices", false, "list attached storage devices instead of analyzing a path")
	root.Flags().BoolVar(&scanOnly, "scan-only", false, "list deleted files without recovering their content")
	root.Flags().StringVar(&outputDir, "output", "./recovered", "output directory for recovered files")
	root.Flags().IntVar(&partition, "partition", -1, "index of the NTFS partition to recover (-1 = first NTFS partition found)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(ferr.ExitCode(err))
	}
}

func runListDevices(cmd *cobra.Command) error {
	settings, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := logging.Setup(logging.Options{Level: settings.LogLevel, LogFile: settings.LogFile})
	if err != nil {
		return err
	}

	devices, err := device.List()
	if err != nil {
		logging.ErrorFatal(logger, err)
		return err
	}
	logger.WithFields(map[string]interface{}{"device_count": len(devices)}).Info("devices enumerated")

	out := cmd.OutOrStdout()
	for _, d := range devices {
		fmt.Fprintf(out, "%-20s%-10s%-12s%s\n", d.Path, d.SizeHuman, d.Filesystem, d.Name)
	}
	return nil
}

func run(cmd *cobra.Command, path string, partitionIndex int, scanOnly bool, outputDir string) error {
	settings, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := logging.Setup(logging.Options{Level: settings.LogLevel, LogFile: settings.LogFile})
	if err != nil {
		return err
	}

	vol, err := volreader.Open(path)
	if err != nil {
		return &ferr.UsageError{Reason: err.Error()}
	}
	defer vol.Close()
	vol.SetSectorSize(settings.SectorSize)

	partitions, err := mbr.ReadPartitionTable(vol)
	if err != nil {
		logging.ErrorFatal(logger, err)
		return err
	}

	bpb, byteOffset, err := selectNTFSPartition(vol, partitions, partitionIndex)
	if err != nil {
		return err
	}

	scanner := ntfsrecover.NewScanner(vol, bpb, byteOffset)
	deleted, warnings, err := scanner.ScanDeleted()
	if err != nil {
		logging.ErrorFatal(logger, err)
		return err
	}
	for _, w := range warnings {
		logging.WarnDecodeWarning(logger, w.Offset, fmt.Sprintf("MFT record %d", w.Entry), w)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "found %d deleted file(s)\n", len(deleted))

	if scanOnly {
		for _, e := range deleted {
			fmt.Fprintf(out, "  %s\n", e.Path())
		}
		return nil
	}

	fs := afero.NewOsFs()
	var recovered int
	for _, e := range deleted {
		dest, err := scanner.Recover(fs, outputDir, e)
		if err != nil {
			logging.WarnDecodeWarning(logger, 0, e.Path(), err)
			continue
		}
		fmt.Fprintf(out, "  recovered %s -> %s\n", e.Path(), dest)
		recovered++
	}
	fmt.Fprintf(out, "recovered %d of %d file(s)\n", recovered, len(deleted))
	return nil
}

// selectNTFSPartition picks the NTFS partition to scan: the explicit
// --partition index if given, otherwise the first type-0x07 entry found.
func selectNTFSPartition(vol *volreader.Reader, partitions []mbr.Partition, index int) (*mbr.NTFSBPB, int64, error) {
	if index >= 0 {
		if index >= len(partitions) {
			return nil, 0, &ferr.UsageError{Reason: fmt.Sprintf("partition index %d out of range (found %d)", index, len(partitions))}
		}
		p := partitions[index]
		bpb, err := mbr.ReadNTFSBPB(vol, p.ByteOffset)
		if err != nil {
			return nil, 0, err
		}
		return bpb, p.ByteOffset, nil
	}

	for _, p := range partitions {
		if p.Type != 0x07 {
			continue
		}
		bpb, err := mbr.ReadNTFSBPB(vol, p.ByteOffset)
		if err != nil {
			continue
		}
		return bpb, p.ByteOffset, nil
	}
	return nil, 0, &ferr.UsageError{Reason: "no NTFS partition found on this image"}
}
