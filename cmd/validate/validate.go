// Package validate implements the validate subcommand, a dry check of the
// configuration and the station roster.
package validate

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wavepulse/wavepulse-go/internal/conf"
	"github.com/wavepulse/wavepulse-go/internal/logging"
	"github.com/wavepulse/wavepulse-go/internal/schedule"
)

// Command creates the validate subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and station roster without recording",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, settings)
		},
	}
}

func runValidate(cmd *cobra.Command, settings *conf.Settings) error {
	if err := conf.ValidateSettings(settings); err != nil {
		return err
	}

	loc, err := settings.TimeLocation()
	if err != nil {
		return err
	}

	paths := conf.ResolvePaths(settings)
	roster, err := schedule.LoadRoster(paths.ScheduleFile, logging.ForService("validate"))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfgFile, err := conf.FindConfigFile(); err == nil {
		fmt.Fprintf(out, "config file: %s\n", cfgFile)
	} else {
		fmt.Fprintln(out, "no config file found, defaults and environment apply")
	}
	fmt.Fprintf(out, "configuration valid, timezone %s\n", loc)
	fmt.Fprintf(out, "roster %s: %d usable stations, %d skipped\n\n",
		paths.ScheduleFile, len(roster.Stations), roster.Skipped)

	for i := range roster.Stations {
		st := &roster.Stations[i]
		windows := make([]string, 0, len(st.Windows))
		for _, w := range st.Windows {
			windows = append(windows, w.String())
		}
		fmt.Fprintf(out, "%-16s %-48s %s\n", st.ID(), st.URL, strings.Join(windows, " "))
	}

	if roster.Skipped > 0 {
		fmt.Fprintf(out, "\n%d malformed entries were skipped, check the logs\n", roster.Skipped)
	}
	return nil
}
