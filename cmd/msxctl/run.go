package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wippyai/msx-toolkit/config"
	"github.com/wippyai/msx-toolkit/scenario"
	"github.com/wippyai/msx-toolkit/toolkit"
)

var (
	runMode        string
	runHydraulics  string
	runOutput      string
	runSaveProject string
	runReport      bool
	runSaveScratch bool
)

var runCmd = &cobra.Command{
	Use:   "run [input.msx]",
	Short: "Run a water quality simulation to completion",
	Long: `Run a water quality simulation to completion.

The input file comes from the argument or the run file. Hydraulics are
solved unless --hydraulics names a saved EPANET hydraulics file. Values
listed under watch in the run file are reported at the end of the run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	addRunFlags(runCmd)
	runCmd.Flags().StringVar(&runMode, "mode", "", "Quality solver mode: step or solve")
}

// addRunFlags registers the project flags shared by run and step.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&runHydraulics, "hydraulics", "", "Use a saved hydraulics file instead of solving hydraulics")
	f.StringVar(&runOutput, "output", "", "Save binary results to this file")
	f.StringVar(&runSaveProject, "save-project", "", "Save the project, with overrides, as an MSX file")
	f.BoolVar(&runReport, "report", false, "Write the engine report")
	f.BoolVar(&runSaveScratch, "save-scratch", false, "Save results to the engine scratch file while stepping")
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("mode") {
		cfg.Project.Mode = runMode
	}
	if f.Changed("hydraulics") {
		cfg.Project.Hydraulics = runHydraulics
		cfg.Project.SolveHydraulics = false
	}
	if f.Changed("output") {
		cfg.Project.Output = runOutput
	}
	if f.Changed("save-project") {
		cfg.Project.SaveProject = runSaveProject
	}
	if f.Changed("report") {
		cfg.Project.Report = runReport
	}
	if f.Changed("save-scratch") {
		cfg.Project.SaveScratch = runSaveScratch
	}
}

func inputArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(inputArg(args), func(c *config.Config) { applyRunFlags(cmd, c) })
	if err != nil {
		return err
	}

	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	res, err := scenario.NewRunner(s.tk, cfg).Run(ctx)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func printResult(w io.Writer, res *scenario.Result) {
	fmt.Fprintf(w, "%s %s\n\n", titleStyle.Render("MSX run"), res.Input)
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("run id:"), res.RunID)
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("mode:  "), res.Mode)
	if res.Mode == config.ModeStep {
		fmt.Fprintf(w, "  %s %d (%s simulated)\n", labelStyle.Render("steps: "), res.Steps, res.Final.Elapsed())
	}
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("took:  "), res.Elapsed.Round(time.Millisecond))

	if len(res.Probes) == 0 || len(res.Samples) == 0 {
		return
	}
	last := res.Samples[len(res.Samples)-1]
	fmt.Fprintf(w, "\n%s\n", headerStyle.Render("Final quality"))
	fmt.Fprint(w, probeTable(res.Probes, last))
}

func probeTable(probes []scenario.Probe, smp scenario.Sample) string {
	width := 0
	for _, p := range probes {
		width = max(width, len(p.Label))
	}
	var b strings.Builder
	for i, p := range probes {
		fmt.Fprintf(&b, "  %-*s  %s\n", width, p.Label, valueStyle.Render(fmt.Sprintf("%.6g", smp.Values[i])))
	}
	return b.String()
}

// clockText formats a clock as elapsed / remaining.
func clockText(c toolkit.Clock) string {
	return fmt.Sprintf("t=%s left=%ds", c.Elapsed(), c.TimeLeft)
}
