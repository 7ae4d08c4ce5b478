package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thraizz/mage-engine-go/internal/game/state"
	"github.com/thraizz/mage-engine-go/internal/session"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Work with recorded match replays",
}

var replayInspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Print every frame of a replay file",
	Long: `Loads a replay written by the server, decodes each frame and verifies
its checksum. A corrupt frame fails the command.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		replay, err := session.LoadReplayFile(args[0])
		if err != nil {
			return err
		}
		frameIndex, _ := cmd.Flags().GetInt("frame")
		if frameIndex >= 0 {
			frame, ok := replay.At(frameIndex)
			if !ok {
				return fmt.Errorf("frame %d out of range (replay has %d)", frameIndex, replay.Size())
			}
			st, err := frame.Decode()
			if err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), st)
			return nil
		}
		return printFrames(cmd.OutOrStdout(), replay)
	},
}

func printFrames(out io.Writer, replay *session.Replay) error {
	fmt.Fprintf(out, "match %s: %d frames\n", replay.MatchID, replay.Size())
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tLABEL\tTURN\tSTEP\tLIFE\tPENDING\tCHECKSUM")
	for _, frame := range replay.Frames() {
		st, err := frame.Decode()
		if err != nil {
			_ = w.Flush()
			return err
		}
		pending := "-"
		if d := st.PendingDecision(); d != nil {
			pending = string(d.Kind())
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\t%.12s\n",
			frame.Sequence, frame.Label, st.Turn(), st.Step(), lifeTotals(st), pending, frame.Checksum)
	}
	return w.Flush()
}

func lifeTotals(st *state.State) string {
	parts := make([]string, 0, len(st.TurnOrder()))
	for _, id := range st.TurnOrder() {
		parts = append(parts, fmt.Sprintf("%s=%d", id, st.Life(id)))
	}
	return strings.Join(parts, " ")
}

func printState(out io.Writer, st *state.State) {
	fmt.Fprintf(out, "turn %d, %s %s, active %s\n", st.Turn(), st.Phase(), st.Step(), st.ActivePlayer())
	for _, id := range st.TurnOrder() {
		fmt.Fprintf(out, "  %s: life %d, library %d, hand %v, graveyard %v\n",
			id, st.Life(id), st.ZoneSize(state.LibraryOf(id)),
			st.Zone(state.HandOf(id)), st.Zone(state.GraveyardOf(id)))
	}
	fmt.Fprintf(out, "  battlefield: %v\n", st.Zone(state.Battlefield))
	if n := len(st.FloatingEffects()); n > 0 {
		fmt.Fprintf(out, "  floating effects: %d\n", n)
	}
	if d := st.PendingDecision(); d != nil {
		fmt.Fprintf(out, "  pending %s decision %s for %s\n", d.Kind(), d.Header().ID, d.Header().PlayerID)
	}
}

func init() {
	replayInspectCmd.Flags().Int("frame", -1, "print the full state of one frame")
	replayCmd.AddCommand(replayInspectCmd)
	rootCmd.AddCommand(replayCmd)
}
