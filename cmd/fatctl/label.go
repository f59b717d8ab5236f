package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLabelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "label IMAGE",
		Short: "print the volume label",
		Args:  cobra.ExactArgs(1),
		RunE:  executeLabel,
	}
}

func executeLabel(cmd *cobra.Command, args []string) error {
	fs, done, err := openVolume(args[0])
	if err != nil {
		return err
	}
	defer done()

	label := strings.TrimRight(fs.Label(), " ")
	if label == "" {
		log.Debugf("volume has no label entry")
	}
	fmt.Fprintln(cmd.OutOrStdout(), label)

	return nil
}
