package config

import (
	"os"

	"github.com/Veraticus/the-spice-must-chat/internal/sheets"
	"github.com/spf13/viper"
)

// LoadSheetsConfig reads the spreadsheet mirror settings. Precedence is
// viper (config file or SPICECHAT_SHEETS_* env), then GOOGLE_SHEETS_* env,
// then defaults. It returns nil when no authentication method is configured,
// which leaves the mirror disabled.
func LoadSheetsConfig(v *viper.Viper) (*sheets.Config, error) {
	config := sheets.DefaultConfig()

	if s := v.GetString("sheets.service_account_path"); s != "" {
		config.ServiceAccountPath = ExpandPath(s)
	}
	config.ClientID = v.GetString("sheets.client_id")
	config.ClientSecret = v.GetString("sheets.client_secret")
	config.RefreshToken = v.GetString("sheets.refresh_token")
	config.SpreadsheetID = v.GetString("sheets.spreadsheet_id")
	if s := v.GetString("sheets.spreadsheet_name"); s != "" {
		config.SpreadsheetName = s
	}
	if s := v.GetString("sheets.ledger_sheet"); s != "" {
		config.LedgerSheet = s
	}
	if s := v.GetString("sheets.summary_sheet"); s != "" {
		config.SummarySheet = s
	}
	if s := v.GetString("sheets.time_zone"); s != "" {
		config.TimeZone = s
	}
	if n := v.GetInt("sheets.batch_size"); n != 0 {
		config.BatchSize = n
	}

	if config.ServiceAccountPath == "" {
		if s := os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"); s != "" {
			config.ServiceAccountPath = ExpandPath(s)
		}
	}
	if config.ClientID == "" {
		config.ClientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	}
	if config.ClientSecret == "" {
		config.ClientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	}
	if config.RefreshToken == "" {
		config.RefreshToken = os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN")
	}
	if config.SpreadsheetID == "" {
		config.SpreadsheetID = os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID")
	}

	if config.ServiceAccountPath == "" && config.RefreshToken == "" {
		return nil, nil
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
