package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/amarnathcjd/waitfor/internal/scenario"
)

var errScenarioFailed = errors.New("[ScenarioFailed] some listeners did not resolve as expected")

func replayCmd(config func() *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "replay scenario.yaml...",
		Short: "Play scripted updates against declared listeners and check how each resolved",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config()
			log := newLogger(cfg)
			failed := false
			for _, path := range args {
				s, err := scenario.Load(path)
				if err != nil {
					return errors.Wrap(err, path)
				}
				c, err := newClient(cfg, log, nil)
				if err != nil {
					return err
				}
				report, err := scenario.Run(cmd.Context(), c, s)
				c.Stop()
				if err != nil {
					return errors.Wrap(err, path)
				}
				printReport(cmd.OutOrStdout(), path, report)
				failed = failed || !report.Passed()
			}
			if failed {
				return errScenarioFailed
			}
			return nil
		},
	}
}

func printReport(w io.Writer, path string, r *scenario.Report) {
	pass := color.New(color.FgGreen, color.Bold).SprintFunc()
	fail := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	name := r.Scenario
	if name == "" {
		name = path
	}
	fmt.Fprintf(w, "%s %s\n", color.CyanString("scenario"), name)
	for _, o := range r.Outcomes {
		detail := o.Got
		if o.MessageID != 0 {
			detail += fmt.Sprintf(" msg=%d", o.MessageID)
		}
		if o.Hits != 0 {
			detail += fmt.Sprintf(" hits=%d", o.Hits)
		}
		if o.OK() {
			fmt.Fprintf(w, "  %s %-24s %s\n", pass("PASS"), o.Name, dim(detail))
			continue
		}
		fmt.Fprintf(w, "  %s %-24s %s\n", fail("FAIL"), o.Name, o.Problem)
	}
	fmt.Fprintf(w, "  %s\n", dim(fmt.Sprintf("%d update(s), %d delivery(ies)", r.Dispatched, r.Notified)))
}
