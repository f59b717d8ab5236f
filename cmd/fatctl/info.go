package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-bootfs/fatfs"
)

var infoFormat string

// volumeSummary is the printable view of the volume geometry. All sector
// numbers are in 512 byte units.
type volumeSummary struct {
	Type           string `yaml:"type"`
	Label          string `yaml:"label,omitempty"`
	OEMName        string `yaml:"oemName,omitempty"`
	VolumeID       uint32 `yaml:"volumeId"`
	SectorSize     uint16 `yaml:"sectorSize"`
	ClusterBytes   uint32 `yaml:"clusterBytes"`
	NumSectors     uint32 `yaml:"numSectors"`
	NumClusters    uint32 `yaml:"numClusters"`
	NumFATs        uint8  `yaml:"numFats"`
	FATSector      uint32 `yaml:"fatSector"`
	SectorsPerFAT  uint32 `yaml:"sectorsPerFat"`
	RootSector     uint32 `yaml:"rootSector"`
	NumRootSectors uint32 `yaml:"numRootSectors"`
	ClusterSector  uint32 `yaml:"clusterSector"`
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info IMAGE",
		Short: "show the volume geometry",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFormat(infoFormat)
		},
		RunE: executeInfo,
	}

	cmd.Flags().StringVar(&infoFormat, "format", "text",
		"Output format, one of text, yaml")

	return cmd
}

func validateFormat(format string) error {
	switch format {
	case "text", "yaml":
		return nil
	default:
		return fmt.Errorf("unsupported --format %q (supported: text, yaml)", format)
	}
}

func executeInfo(cmd *cobra.Command, args []string) error {
	fs, done, err := openVolume(args[0])
	if err != nil {
		return err
	}
	defer done()

	summary := buildSummary(fs)
	out := cmd.OutOrStdout()

	switch infoFormat {
	case "yaml":
		data, err := yaml.Marshal(summary)
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))
	default:
		fmt.Fprintf(out, "Type:             %s\n", summary.Type)
		fmt.Fprintf(out, "Label:            %s\n", summary.Label)
		fmt.Fprintf(out, "OEM name:         %s\n", summary.OEMName)
		fmt.Fprintf(out, "Volume id:        %08X\n", summary.VolumeID)
		fmt.Fprintf(out, "Sector size:      %d\n", summary.SectorSize)
		fmt.Fprintf(out, "Cluster size:     %d\n", summary.ClusterBytes)
		fmt.Fprintf(out, "Sectors:          %d\n", summary.NumSectors)
		fmt.Fprintf(out, "Clusters:         %d\n", summary.NumClusters)
		fmt.Fprintf(out, "FATs:             %d\n", summary.NumFATs)
		fmt.Fprintf(out, "FAT sector:       %d\n", summary.FATSector)
		fmt.Fprintf(out, "Sectors per FAT:  %d\n", summary.SectorsPerFAT)
		fmt.Fprintf(out, "Root sector:      %d\n", summary.RootSector)
		fmt.Fprintf(out, "Root sectors:     %d\n", summary.NumRootSectors)
		fmt.Fprintf(out, "Cluster sector:   %d\n", summary.ClusterSector)
	}

	return nil
}

func buildSummary(fs *fatfs.Fs) volumeSummary {
	info := fs.Info()
	return volumeSummary{
		Type:           info.FSType.String(),
		Label:          fs.Label(),
		OEMName:        info.OEMName,
		VolumeID:       info.VolumeID,
		SectorSize:     info.SectorSize,
		ClusterBytes:   info.ClusterBytes(),
		NumSectors:     info.NumSectors,
		NumClusters:    info.NumClusters,
		NumFATs:        info.NumFATs,
		FATSector:      info.FATSector,
		SectorsPerFAT:  info.SectorsPerFAT,
		RootSector:     info.RootSector,
		NumRootSectors: info.NumRootSectors,
		ClusterSector:  info.ClusterSector,
	}
}
