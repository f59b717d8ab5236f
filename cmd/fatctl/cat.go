package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/go-bootfs/fatfs"
)

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat IMAGE PATH",
		Short: "write a file of the image to stdout",
		Args:  cobra.ExactArgs(2),
		RunE:  executeCat,
	}
}

func executeCat(cmd *cobra.Command, args []string) error {
	fs, done, err := openVolume(args[0])
	if err != nil {
		return err
	}
	defer done()

	file, err := fs.Open(args[1])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[1], err)
	}
	defer file.Close()

	if verbose {
		if f, ok := file.(*fatfs.File); ok {
			f.SetReadHook(func(sector, offset, length uint32) {
				log.Debugf("read sector=%d offset=%d length=%d", sector, offset, length)
			})
		}
	}

	if _, err := io.Copy(cmd.OutOrStdout(), file); err != nil {
		return fmt.Errorf("read %s: %w", args[1], err)
	}

	return nil
}
