package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls IMAGE [PATH]",
		Short: "list a directory of the image",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  executeLs,
	}
}

func executeLs(cmd *cobra.Command, args []string) error {
	path := "/"
	if len(args) > 1 {
		path = args[1]
	}
	// Listing the contents of a directory needs the trailing slash form.
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}

	fs, done, err := openVolume(args[0])
	if err != nil {
		return err
	}
	defer done()

	out := cmd.OutOrStdout()
	err = fs.List(path, func(name string, isDir bool) bool {
		if isDir {
			fmt.Fprintf(out, "%-12s %s\n", "<DIR>", name)
		} else {
			fmt.Fprintf(out, "%-12s %s\n", "", name)
		}
		return false
	})
	if err != nil {
		return fmt.Errorf("list %s: %w", path, err)
	}

	return nil
}
