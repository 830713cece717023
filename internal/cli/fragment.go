package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bhandras/replbox/internal/fragment"
	"github.com/bhandras/replbox/pkg/types"
	"github.com/spf13/cobra"
)

var fragmentCmd = &cobra.Command{
	Use:   "fragment",
	Short: "Encode and decode share fragments",
}

var fragmentEncodeCmd = &cobra.Command{
	Use:   "encode [session.json]",
	Short: "Encode a JSON session into a fragment",
	Long: `Read a session as JSON from a file or stdin and print its fragment.

The JSON shape is {"currentPreset": ..., "files": [...], "options": {...}}.
Missing options default to the server defaults.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFragmentEncode,
}

var fragmentDecodeCmd = &cobra.Command{
	Use:   "decode <fragment>",
	Short: "Decode a fragment into JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runFragmentDecode,
}

func init() {
	fragmentCmd.AddCommand(fragmentEncodeCmd)
	fragmentCmd.AddCommand(fragmentDecodeCmd)
	rootCmd.AddCommand(fragmentCmd)
}

func runFragmentEncode(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open session: %w", err)
		}
		defer f.Close()
		r = f
	}

	s := types.Session{Options: types.DefaultBuildOptions()}
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return fmt.Errorf("failed to parse session: %w", err)
	}
	enc, err := fragment.Encode(s)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), enc)
	return nil
}

func runFragmentDecode(cmd *cobra.Command, args []string) error {
	raw := args[0]
	// Accept full share links as well as bare fragments.
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[i+1:]
	}
	s := fragment.Decode(raw)
	if s == nil {
		return fmt.Errorf("fragment is not a valid session")
	}
	out := json.NewEncoder(cmd.OutOrStdout())
	out.SetIndent("", "  ")
	return out.Encode(s)
}
