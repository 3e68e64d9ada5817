package main

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/wippyai/msx-toolkit/config"
	"github.com/wippyai/msx-toolkit/errors"
	"github.com/wippyai/msx-toolkit/scenario"
)

var (
	stepInteractive bool
	stepEvery       int
)

var stepCmd = &cobra.Command{
	Use:   "step [input.msx]",
	Short: "Step a water quality simulation and print watched values",
	Long: `Step a water quality simulation one quality time step at a time.

Each step prints the simulation clock and the value of every watched
species. With -i the run is driven from an interactive terminal view.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStep,
}

func init() {
	addRunFlags(stepCmd)
	stepCmd.Flags().BoolVarP(&stepInteractive, "interactive", "i", false, "Drive the run from an interactive view")
	stepCmd.Flags().IntVar(&stepEvery, "every", 1, "Print every Nth step")
}

func runStep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if stepEvery < 1 {
		return errors.InvalidInput(errors.PhaseConfig, "every", "must be at least 1")
	}
	if stepInteractive && !interactiveTerminal() {
		return errors.Unsupported(errors.PhaseConfig, "interactive mode without a terminal")
	}

	cfg, err := loadConfig(inputArg(args), func(c *config.Config) {
		applyRunFlags(cmd, c)
		c.Project.Mode = config.ModeStep
	})
	if err != nil {
		return err
	}

	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	run, err := scenario.NewRunner(s.tk, cfg).Start(ctx)
	if err != nil {
		return err
	}
	defer run.Close(ctx)

	if stepInteractive {
		m := newInteractiveModel(ctx, cfg.Project.Input, run)
		if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
			return err
		}
		return m.err
	}
	return stepAll(cmd, run)
}

// stepAll steps run to the end of the simulation, printing one line per
// printed step, then writes the configured outputs.
func stepAll(cmd *cobra.Command, run *scenario.Session) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	probes := run.Probes()
	printStepHeader(w, probes)

	if err := run.Init(ctx); err != nil {
		return err
	}
	for {
		smp, err := run.Step(ctx)
		if err != nil {
			return err
		}
		done := smp.Clock.Done()
		if run.Steps()%stepEvery == 0 || done {
			printStepLine(w, run.Steps(), smp)
		}
		if done {
			break
		}
	}
	return run.Finish(ctx)
}

func printStepHeader(w io.Writer, probes []scenario.Probe) {
	cols := []string{fmt.Sprintf("%6s", "step"), fmt.Sprintf("%10s", "time")}
	for _, p := range probes {
		cols = append(cols, fmt.Sprintf("%14s", p.Label))
	}
	fmt.Fprintln(w, headerStyle.Render(strings.Join(cols, " ")))
}

func printStepLine(w io.Writer, step int, smp scenario.Sample) {
	cols := []string{fmt.Sprintf("%6d", step), fmt.Sprintf("%10s", smp.Clock.Elapsed())}
	for _, v := range smp.Values {
		cols = append(cols, fmt.Sprintf("%14.6g", v))
	}
	fmt.Fprintln(w, strings.Join(cols, " "))
}
