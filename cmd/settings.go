package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the stored token, archive id and destination folder",
}

var showSettingsCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		st := services.Settings.Load()
		st.Token = maskToken(st.Token)
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal settings: %w", err)
		}
		fmt.Printf("# %s\n%s\n", services.Settings.Path(), data)
		return nil
	},
}

var newSettings settings.Settings

var setSettingsCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the stored settings; omitted flags keep their value",
	RunE: func(cmd *cobra.Command, args []string) error {
		st := services.Settings.Load()
		if cmd.Flags().Changed("token") {
			st.Token = newSettings.Token
		}
		if cmd.Flags().Changed("archive") {
			st.ArchiveID = newSettings.ArchiveID
		}
		if cmd.Flags().Changed("dest-folder") {
			st.DestinationFolder = newSettings.DestinationFolder
		}
		if !services.Settings.Save(st) {
			return fmt.Errorf("could not write settings to %s", services.Settings.Path())
		}
		logger.Infow("Settings saved", "path", services.Settings.Path())
		return nil
	},
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

func init() {
	f := setSettingsCmd.Flags()
	f.StringVar(&newSettings.Token, "token", "", "Bearer token")
	f.StringVar(&newSettings.ArchiveID, "archive", "", "Source archive id")
	f.StringVar(&newSettings.DestinationFolder, "dest-folder", "", "Folder below the mount")

	settingsCmd.AddCommand(showSettingsCmd)
	settingsCmd.AddCommand(setSettingsCmd)
}
