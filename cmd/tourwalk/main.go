// Command tourwalk replays a recorded walk against a route catalogue and
// prints arrivals and narration as the tracking engine sees them.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	params := defaultParams()
	cmd := &cobra.Command{
		Use:   "tourwalk",
		Short: "Replay a recorded walk through the route tracking engine",
		Long: "tourwalk loads a route catalogue and a track of location fixes, " +
			"starts a session and feeds the fixes in, compressing time by --speed.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if code := Run(cmd.Context(), params, cmd.OutOrStdout(), cmd.ErrOrStderr()); code != 0 {
				return errExit(code)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&params.RoutePath, "routes", "r", "", "route catalogue YAML")
	f.StringVarP(&params.TrackPath, "track", "t", "", "track YAML of recorded fixes")
	f.StringVar(&params.Slug, "slug", "", "route to walk (default: first in catalogue)")
	f.Float64Var(&params.Speed, "speed", params.Speed, "time compression factor")
	f.IntVar(&params.WordsPerMinute, "wpm", params.WordsPerMinute, "narration pace before compression")
	f.IntVar(&params.MaxRegions, "regions", params.MaxRegions, "region monitoring ceiling (0 polls every fix)")
	f.DurationVar(&params.Settle, "settle", params.Settle, "queue settle window before the first narration")
	f.DurationVar(&params.Drain, "drain", params.Drain, "how long to wait for narration after the last fix")
	f.BoolVar(&params.Reorder, "nearest-start", false, "start the route at the stop nearest the first fix")
	f.BoolVar(&params.Verbose, "verbose", false, "log engine internals to stderr")
	_ = cmd.MarkFlagRequired("routes")
	_ = cmd.MarkFlagRequired("track")
	return cmd
}

type errExit int

func (e errExit) Error() string { return "tourwalk failed" }
