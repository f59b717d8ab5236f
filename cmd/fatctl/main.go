// fatctl inspects FAT12/16/32 filesystem images: it lists directories, reads
// files out of them and shows the volume geometry, either from a plain
// filesystem image or from one partition of a full disk image.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/diskfs/go-diskfs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/go-bootfs/fatfs"
)

var (
	verbose   bool
	partition int

	log *zap.SugaredLogger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fatctl",
		Short: "inspect FAT12/16/32 filesystem images",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initLogger()
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging and device read tracing")
	root.PersistentFlags().IntVarP(&partition, "partition", "p", 0,
		"Partition number inside a full disk image (1-based, 0 = whole image)")

	root.AddCommand(newLsCmd())
	root.AddCommand(newCatCmd())
	root.AddCommand(newLabelCmd())
	root.AddCommand(newInfoCmd())

	return root
}

func initLogger() error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	log = logger.Sugar()
	return nil
}

// openVolume mounts the FAT filesystem in the given image. With --partition
// set, the partition table of the image is parsed to locate the filesystem.
// The returned closer releases the underlying file.
func openVolume(path string) (*fatfs.Fs, func() error, error) {
	img, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	var reader io.ReadSeeker = img
	if partition > 0 {
		start, size, err := partitionRange(path, partition)
		if err != nil {
			img.Close()
			return nil, nil, err
		}
		log.Debugf("using partition %d at byte %d, %d bytes", partition, start, size)
		reader = io.NewSectionReader(img, start, size)
	}

	fs, err := fatfs.New(reader)
	if err != nil {
		img.Close()
		return nil, nil, err
	}

	return fs, img.Close, nil
}

// partitionRange reads the partition table of the image and returns the byte
// range of the requested 1-based partition.
func partitionRange(path string, num int) (start, size int64, err error) {
	d, err := diskfs.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open disk image: %w", err)
	}
	defer d.Close()

	pt, err := d.GetPartitionTable()
	if err != nil {
		return 0, 0, fmt.Errorf("get partition table: %w", err)
	}

	parts := pt.GetPartitions()
	if num > len(parts) {
		return 0, 0, fmt.Errorf("partition %d out of range, image has %d", num, len(parts))
	}

	p := parts[num-1]
	return p.GetStart(), p.GetSize(), nil
}
