package cli

import (
	"fmt"
	"strings"

	"github.com/bhandras/replbox/internal/preset"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var presetsFile string

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the preset catalog",
	RunE:  runPresets,
}

func init() {
	presetsCmd.Flags().StringVar(&presetsFile, "presets", "", "TOML file with extra presets")
	rootCmd.AddCommand(presetsCmd)
}

func runPresets(cmd *cobra.Command, args []string) error {
	catalog, err := preset.Load(presetsFile)
	if err != nil {
		return fmt.Errorf("failed to load presets: %w", err)
	}

	out := cmd.OutOrStdout()
	defaultName := catalog.Default().Name
	for _, name := range catalog.Names() {
		p, _ := catalog.Get(name)
		files := p.Files()

		var size int
		names := make([]string, 0, len(files))
		for _, f := range files {
			size += len(f.Content)
			label := f.Name
			if f.IsEntry {
				label += "*"
			}
			names = append(names, label)
		}

		marker := " "
		if name == defaultName {
			marker = ">"
		}
		fmt.Fprintf(out, "%s %-14s %8s  %s\n", marker, name, humanize.Bytes(uint64(size)), strings.Join(names, ", "))
	}
	return nil
}
