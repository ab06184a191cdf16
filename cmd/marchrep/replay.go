package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ayusman/marchrep/internal/config"
	"github.com/ayusman/marchrep/internal/exercise"
	"github.com/ayusman/marchrep/internal/logging"
	"github.com/ayusman/marchrep/internal/replay"
)

func newReplayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <file>",
		Short: "Count reps in a JSON lines landmark recording (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplay,
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open recording: %w", err)
		}
		defer f.Close()
		in = f
	}

	p := exercise.NewProcessor(nil,
		exercise.WithThresholds(cfg.Thresholds),
		exercise.WithLogger(logger),
	)

	sum, err := replay.Run(in, p)
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), sum)
	return nil
}

func printSummary(w io.Writer, sum replay.Summary) {
	fmt.Fprintf(w, "frames:    %s (%s rejected, %s malformed)\n",
		humanize.Comma(int64(sum.Frames)), humanize.Comma(int64(sum.Rejected)), humanize.Comma(int64(sum.Malformed)))
	fmt.Fprintf(w, "reps:      %s\n", humanize.Comma(int64(sum.Reps)))
	fmt.Fprintf(w, "posture:   %s\n", sum.Posture)
	fmt.Fprintf(w, "progress:  %.3f\n", sum.Progress)
	if sum.Span > 0 {
		var start time.Time
		fmt.Fprintf(w, "span:      %s\n", strings.TrimSpace(humanize.RelTime(start, start.Add(sum.Span), "", "")))
	}
}

// loadConfig reads the --config file and builds the logger it describes.
func loadConfig(cmd *cobra.Command, logOut io.Writer) (*config.Config, *slog.Logger, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Logging, logOut)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}
