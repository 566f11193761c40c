package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/lateralusd/machpatch"
	"github.com/lateralusd/machpatch/internal/macho"
)

// NewInfoCommand creates the info command.
func NewInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "List slices and load commands of a Mach-O file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := machpatch.Describe(args[0])
			if err != nil {
				return err
			}
			renderSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}
}

func renderSummary(w io.Writer, sum *machpatch.Summary) {
	kind := "thin"
	if sum.Fat {
		kind = "universal"
	}
	_, _ = fmt.Fprintf(w, "%s: %s, %d slice(s)\n", sum.Path, kind, len(sum.Slices))

	for _, s := range sum.Slices {
		bits := 32
		if s.Is64 {
			bits = 64
		}
		_, _ = fmt.Fprintf(w, "\n%s %s (%d-bit) at %#x flags=%s\n", s.CPU, s.Filetype, bits, s.Offset, formatFlags(s.Flags))

		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"#", "Command", "Size", "Detail"})
		for i, c := range s.Commands {
			t.AppendRow(table.Row{i, c.Cmd, c.Size, c.Detail})
		}
		t.Render()
	}
}

func formatFlags(f macho.HeaderFlag) string {
	var names []string
	for _, fl := range []struct {
		flag macho.HeaderFlag
		name string
	}{
		{macho.MH_NOUNDEFS, "NOUNDEFS"},
		{macho.MH_DYLDLINK, "DYLDLINK"},
		{macho.MH_TWOLEVEL, "TWOLEVEL"},
		{macho.MH_NO_REEXPORTED_DYLIBS, "NO_REEXPORTED_DYLIBS"},
		{macho.MH_PIE, "PIE"},
	} {
		if f&fl.flag != 0 {
			names = append(names, fl.name)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("%#x", uint32(f))
	}
	return strings.Join(names, "|")
}
