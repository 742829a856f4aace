package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-spice-must-chat/internal/cli"
	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/Veraticus/the-spice-must-chat/internal/tui"
	"github.com/Veraticus/the-spice-must-chat/internal/tui/themes"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a running service's session status",
		Long: `Poll GET /status of a running service and show the connection state.
While the session waits for pairing the pairing payload is shown.`,
		RunE: runWatch,
	}

	cmd.Flags().String("url", "", "service base URL (default: derived from server.addr)")
	cmd.Flags().Duration("interval", 0, "poll interval (default 2s)")
	cmd.Flags().Bool("until-connected", false, "exit once the session is connected")
	cmd.Flags().String("theme", "default", "color theme (default, mocha)")

	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	baseURL, _ := cmd.Flags().GetString("url")
	interval, _ := cmd.Flags().GetDuration("interval")
	untilConnected, _ := cmd.Flags().GetBool("until-connected")
	theme, _ := cmd.Flags().GetString("theme")

	if baseURL == "" {
		baseURL = baseURLFromAddr(viper.GetString("server.addr"))
	}

	final, err := tui.Run(cmd.Context(), tui.Config{
		Fetcher:       tui.HTTPFetcher{BaseURL: baseURL},
		Interval:      interval,
		ExitOnConnect: untilConnected,
		Theme:         themes.ByName(theme),
	})
	if err != nil {
		return err
	}

	if final.Record().Status == model.StatusConnected {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Session connected"))
	}
	return nil
}

// baseURLFromAddr turns a listen address such as ":3001" into a loopback URL.
func baseURLFromAddr(addr string) string {
	if addr == "" {
		addr = ":3001"
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	if strings.HasPrefix(addr, "0.0.0.0:") {
		addr = "127.0.0.1" + strings.TrimPrefix(addr, "0.0.0.0")
	}
	return "http://" + addr
}
