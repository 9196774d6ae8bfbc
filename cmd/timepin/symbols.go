package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pboyd/timepin/dl"
)

var (
	symbolFilter string
	funcsOnly    bool
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols <file>",
	Short: "List the symbols of a module file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		syms, err := dl.Symbols(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, sym := range syms {
			if funcsOnly && !sym.Func {
				continue
			}
			if symbolFilter != "" && !strings.Contains(sym.Name, symbolFilter) {
				continue
			}
			fmt.Fprintf(out, "%#016x\t%s\n", sym.Value, sym.Name)
		}
		return nil
	},
}

func init() {
	symbolsCmd.Flags().StringVar(&symbolFilter, "filter", "", "Only list names containing this string")
	symbolsCmd.Flags().BoolVar(&funcsOnly, "funcs", false, "Only list functions")
}
