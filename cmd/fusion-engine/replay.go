package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/skywatch-oss/fusion-engine/internal/fsutil"
	"github.com/skywatch-oss/fusion-engine/internal/playback"
	"github.com/skywatch-oss/fusion-engine/internal/timeutil"
)

func newReplayCmd() *cobra.Command {
	var (
		recordingsDir string
		speed         float64
		stepInterval  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "replay <recording>",
		Short: "Replay a recorded frame sequence to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := playback.NewRecordingStore(fsutil.OSFileSystem{}, recordingsDir)
			rec, err := store.Load(args[0])
			if err != nil {
				return err
			}
			if len(rec.Frames) == 0 {
				return fmt.Errorf("recording %q has no frames", args[0])
			}

			clock := timeutil.RealClock{}
			anim := playback.NewAnimator(rec.Frames, clock)
			anim.SetSpeed(speed)
			anim.Play()

			for !anim.Finished() {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-clock.After(stepInterval):
				}
				snapshot := anim.Current()
				fmt.Printf("%d aircraft\n", len(snapshot))
				for _, pos := range snapshot {
					fmt.Printf("  %s %.4f,%.4f", pos.Hex, pos.Lat, pos.Lon)
					if pos.AltitudeFt != nil {
						fmt.Printf(" %0.f ft", *pos.AltitudeFt)
					}
					fmt.Println()
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&recordingsDir, "dir", "recordings", "directory holding recording JSON files")
	cmd.Flags().Float64Var(&speed, "speed", 1, "playback speed multiplier")
	cmd.Flags().DurationVar(&stepInterval, "step", time.Second, "wall-clock interval between rendered snapshots")
	return cmd
}
