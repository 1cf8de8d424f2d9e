package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/dfa/internal/irfile"
)

var programName string

var dumpCmd = &cobra.Command{
	Use:   "dump [files...]",
	Short: "Print the instructions of program files",
	Long: `Decodes program files and prints every instruction with its index and the
line it was written on.
Example) dfa dump --program loop examples/loop.ir`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide program files")
			os.Exit(1)
		}
		for _, path := range args {
			f, err := irfile.ReadFile(path)
			if err != nil {
				logger.Error("Failed to read program file", zap.String("path", path), zap.Error(err))
				os.Exit(1)
			}
			if err := dumpFile(os.Stdout, f, programName); err != nil {
				logger.Error("Failed to dump program file", zap.String("path", path), zap.Error(err))
				os.Exit(1)
			}
		}
	},
}

func init() {
	dumpCmd.Flags().StringVarP(&programName, "program", "p", "", "Only print the program with this name")
}

func dumpFile(w io.Writer, f *irfile.File, only string) error {
	found := false
	for _, p := range f.Programs {
		if only != "" && p.Name != only {
			continue
		}
		found = true

		fmt.Fprintf(w, "%s: program %s\n", f.Name, p.Name)
		locs := f.Locations[p.Name]

		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"#", "Line", "Instruction", "Source"})
		table.SetAutoWrapText(false)
		for i, in := range p.Instructions() {
			line, src := "", ""
			if i < len(locs) {
				line, src = strconv.Itoa(locs[i].Line), locs[i].Label
			}
			table.Append([]string{strconv.Itoa(in.Index()), line, in.String(), src})
		}
		table.Render()
	}
	if !found && only != "" {
		return fmt.Errorf("no program %q in %s", only, f.Name)
	}
	return nil
}
