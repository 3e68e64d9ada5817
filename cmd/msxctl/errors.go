package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wippyai/msx-toolkit/engine"
	"github.com/wippyai/msx-toolkit/errors"
)

var errorsOffline bool

var errorsCmd = &cobra.Command{
	Use:   "errors <code>...",
	Short: "Print the engine message for error codes",
	Long: `Print the message the engine reports for each error code.

With --offline the built-in message table is used and no engine is
loaded. Codes the engine does not document print a fallback message.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runErrors,
}

func init() {
	errorsCmd.Flags().BoolVar(&errorsOffline, "offline", false, "Use the built-in message table instead of the engine")
}

func runErrors(cmd *cobra.Command, args []string) error {
	codes := make([]int, len(args))
	for i, a := range args {
		c, err := strconv.Atoi(a)
		if err != nil {
			return errors.InvalidInput(errors.PhaseConfig, "code", fmt.Sprintf("%q is not an integer", a))
		}
		codes[i] = c
	}

	text := func(code int) (string, error) {
		if msg, ok := engine.Messages[engine.Status(code)]; ok {
			return msg, nil
		}
		return errors.UndocumentedMessage(code), nil
	}

	if !errorsOffline {
		ctx := cmd.Context()
		cfg, err := loadEngineConfig()
		if err != nil {
			return err
		}
		s, err := openSession(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close(ctx)
		text = func(code int) (string, error) { return s.tk.ErrorText(ctx, code) }
	}

	w := cmd.OutOrStdout()
	for _, c := range codes {
		msg, err := text(c)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%4d", c)), msg)
	}
	return nil
}
