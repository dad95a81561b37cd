package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"pkt.systems/askd/schema"
	"pkt.systems/pslog"
)

func newDoctorCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that every configured agent can be found and started",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, path, err := loadConfig(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}
			logger.Info("doctor start", "config", path, "os", runtime.GOOS)

			registry, err := buildRegistry(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			results := registry.DiagnoseAll(cmd.Context())

			out := cmd.OutOrStdout()
			ok, bad := statusColors(out)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "AGENT\tTRIGGER\tPATH\tVERSION\tSTATUS")
			available := 0
			for _, d := range results {
				detail := d.Result.Version
				if d.Result.Error != "" {
					detail = d.Result.Error
				}
				status := bad.Sprint(d.Result.Status())
				if d.Result.Status() == schema.AgentAvailable {
					available++
					status = ok.Sprint(d.Result.Status())
				}
				// Status stays last so color codes do not skew column widths.
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.Trigger.Word(), dash(d.Result.Path), dash(detail), status)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			logger.Info("doctor done", "agents", len(results), "available", available)
			if available == 0 && len(results) > 0 {
				return fmt.Errorf("no agent is available")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func statusColors(w io.Writer) (*color.Color, *color.Color) {
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	f, isFile := w.(*os.File)
	if !isFile || !isatty.IsTerminal(f.Fd()) {
		ok.DisableColor()
		bad.DisableColor()
	} else {
		ok.EnableColor()
		bad.EnableColor()
	}
	return ok, bad
}
