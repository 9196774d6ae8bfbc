package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pboyd/timepin"
	"github.com/pboyd/timepin/dl"
	"github.com/pboyd/timepin/entry"
)

var attachFlags struct {
	capability string
	candidates []string
	override   float64
	call       float64
}

var attachCmd = &cobra.Command{
	Use:   "attach <module>",
	Short: "Run the attach sequence inside this process against a module",
	Long: `Loads the module into this process, resolves the target through the
module's name resolution callback and installs the hook. With --call the
hooked function is then invoked once so the forwarded value can be seen in
the log.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Module = args[0]

		flags := cmd.Flags()
		if flags.Changed("capability") {
			cfg.Capability = attachFlags.capability
		}
		if flags.Changed("candidate") {
			cfg.Candidates = attachFlags.candidates
		}
		if flags.Changed("settle") {
			cfg.SettleDelay, err = flags.GetDuration("settle")
			if err != nil {
				return err
			}
		} else {
			cfg.SettleDelay = 0
		}
		if flags.Changed("override") {
			cfg.Override = attachFlags.override
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		pin := timepin.Default()
		pin.SetOverride(cfg.Override)
		if err := pin.Attach(context.Background(), cfg, timepin.NativePlatform(entry.Replacement())); err != nil {
			return err
		}

		record := pin.Record()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "target\t%#x\n", record.Target)
		fmt.Fprintf(out, "replacement\t%#x\n", record.Replacement)
		fmt.Fprintf(out, "trampoline\t%#x\n", record.Trampoline)
		fmt.Fprintf(out, "status\t%s\n", record.Status)

		if flags.Changed("call") {
			dl.CallFloat32(record.Target, float32(attachFlags.call))
			fmt.Fprintf(out, "called\t%v (forwarded %v)\n", attachFlags.call, pin.Override())
		}
		return nil
	},
}

func init() {
	flags := attachCmd.Flags()
	flags.StringVar(&attachFlags.capability, "capability", "", "Exported name resolution callback")
	flags.StringArrayVar(&attachFlags.candidates, "candidate", nil, "Target name to try, in order (repeatable)")
	flags.Duration("settle", 0, "Delay before probing the module")
	flags.Float64Var(&attachFlags.override, "override", timepin.DefaultOverride, "Value forwarded to the original")
	flags.Float64Var(&attachFlags.call, "call", 0, "Call the hooked function once with this argument")
}
