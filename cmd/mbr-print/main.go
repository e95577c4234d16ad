// Command mbr-print reads an MBR partition table, following any extended
// chain, and for each NTFS partition it finds, decodes and prints the NTFS
// BIOS Parameter Block inside its boot sector.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yongjin04/diskforensics/internal/config"
	"github.com/yongjin04/diskforensics/internal/device"
	"github.com/yongjin04/diskforensics/internal/ferr"
	"github.com/yongjin04/diskforensics/internal/logging"
	"github.com/yongjin04/diskforensics/internal/mbr"
	"github.com/yongjin04/diskforensics/internal/volreader"
)

func main() {
	var listDevices bool

	root := &cobra.Command{
		Use:           "mbr-print [path]",
		Short:         "Print an MBR partition table and any NTFS BPBs it contains",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listDevices {
				return runListDevices(cmd)
			}
			if len(args) == 0 {
				return &ferr.UsageError{Reason: "mbr-print requires a device or image path (or --list-devices)"}
			}
			return run(cmd, args[0])
		},
	}
	config.BindFlags(root.Flags())
	root.Flags().BoolVar(&listDevices, "list-devices", false, "list attached storage devices instead of analyzing a path")

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

func run(cmd *cobra.Command, path string) error {
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

	out := cmd.OutOrStdout()
	for i, p := range partitions {
		fmt.Fprintf(out, "partition %d:\n", i)
		fmt.Fprintf(out, "  bootable:     %v\n", p.Bootable)
		fmt.Fprintf(out, "  type:         %s (0x%02x)\n", p.TypeName, p.Type)
		fmt.Fprintf(out, "  start_lba:    %d\n", p.StartLBA)
		fmt.Fprintf(out, "  size_sectors: %d\n", p.SizeSectors)
		fmt.Fprintf(out, "  byte_offset:  %d\n", p.ByteOffset)

		if p.Type != 0x07 {
			continue
		}
		bpb, err := mbr.ReadNTFSBPB(vol, p.ByteOffset)
		if err != nil {
			logging.WarnDecodeWarning(logger, p.ByteOffset, fmt.Sprintf("partition %d", i), err)
			continue
		}
		fmt.Fprintf(out, "  ntfs bpb:\n")
		fmt.Fprintf(out, "    oem_id:                 %s\n", bpb.OEMID)
		fmt.Fprintf(out, "    bytes_per_sector:       %d\n", bpb.BytesPerSector)
		fmt.Fprintf(out, "    sectors_per_cluster:    %d\n", bpb.SectorsPerCluster)
		fmt.Fprintf(out, "    total_sectors:          %d\n", bpb.TotalSectors)
		fmt.Fprintf(out, "    mft_cluster:            %d\n", bpb.MFTCluster)
		fmt.Fprintf(out, "    mft_mirr_cluster:       %d\n", bpb.MFTMirrCluster)
		fmt.Fprintf(out, "    mft_record_size:        %d\n", bpb.MFTRecordSize)
		fmt.Fprintf(out, "    index_block_size:       %d\n", bpb.IndexBlockSize)
		fmt.Fprintf(out, "    volume_serial:          %#x\n", bpb.VolumeSerialNumber)
	}
	return nil
}
