package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thraizz/mage-engine-go/internal/game/triggers"
	"github.com/thraizz/mage-engine-go/internal/scenario"
	"github.com/thraizz/mage-engine-go/internal/session"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Run scripted matches",
}

var scenarioRunCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a scenario file and check its expectations",
	Long: `Plays the steps of a YAML scenario on a fresh session. Events, decisions
and triggers are printed as they happen. The command fails on the first
failed step or expectation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := scenario.LoadFile(args[0])
		if err != nil {
			return err
		}
		registryPath, _ := cmd.Flags().GetString("registry")
		auto, _ := cmd.Flags().GetBool("auto-respond")
		replayDir, _ := cmd.Flags().GetString("replay-dir")
		quiet, _ := cmd.Flags().GetBool("quiet")

		opts := scenario.Options{Logger: logger, AutoRespond: auto}
		if registryPath != "" {
			if opts.Registry, err = triggers.LoadRegistryFile(registryPath); err != nil {
				return err
			}
		}
		if replayDir != "" {
			opts.Recorder = session.NewRecorder(logger, replayDir)
		}
		out := cmd.OutOrStdout()
		if !quiet {
			opts.OnNotification = func(n session.Notification) { printNotification(cmd, n) }
		}

		report, err := scenario.Run(sc, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", sc.Name, err)
		}

		fmt.Fprintf(out, "%s: %d steps passed, %d batches applied\n", report.Name, report.Steps, report.Sequence)
		printState(out, report.Final)

		if opts.Recorder != nil {
			path, err := opts.Recorder.Save(sc.Name)
			if err != nil {
				return err
			}
			logger.Info("replay saved", zap.String("path", path))
			fmt.Fprintf(out, "replay: %s\n", path)
		}
		return nil
	},
}

func printNotification(cmd *cobra.Command, n session.Notification) {
	out := cmd.OutOrStdout()
	switch n.Type {
	case session.NotifyEvents:
		for _, e := range n.Events {
			fmt.Fprintf(out, "[%d] %s player=%s target=%s cards=%v amount=%d\n",
				n.Sequence, e.Type, e.PlayerID, e.TargetID, e.CardIDs, e.Amount)
		}
	case session.NotifyDecision:
		h := n.Decision.Header()
		fmt.Fprintf(out, "[%d] decision %s (%s) for %s: %s\n", n.Sequence, h.ID, n.Decision.Kind(), h.PlayerID, h.Context.Prompt)
	case session.NotifyTriggers:
		for _, t := range n.Triggers {
			fmt.Fprintf(out, "[%d] trigger %s from %s (%s)\n", n.Sequence, t.Ability.Name, t.SourceName, t.ControllerID)
		}
	case session.NotifyError:
		fmt.Fprintf(out, "[%d] error: %s\n", n.Sequence, n.Err)
	}
}

func init() {
	scenarioRunCmd.Flags().String("registry", "", "ability registry YAML file")
	scenarioRunCmd.Flags().Bool("auto-respond", false, "answer open decisions with their default response")
	scenarioRunCmd.Flags().String("replay-dir", "", "record the run and save the replay here")
	scenarioRunCmd.Flags().BoolP("quiet", "q", false, "only print the summary")
	scenarioCmd.AddCommand(scenarioRunCmd)
	rootCmd.AddCommand(scenarioCmd)
}
