package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearSheetsEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH",
		"GOOGLE_SHEETS_CLIENT_ID",
		"GOOGLE_SHEETS_CLIENT_SECRET",
		"GOOGLE_SHEETS_REFRESH_TOKEN",
		"GOOGLE_SHEETS_SPREADSHEET_ID",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearSheetsEnv(t)
	t.Setenv("XDG_DATA_HOME", "/var/lib/test")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/test/spicechat/spicechat.db", cfg.Database.Path)
	assert.Equal(t, StoreSQLite, cfg.Session.Store)
	assert.Equal(t, 5, cfg.Session.Policy.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Session.Policy.Step)
	assert.Equal(t, 30*time.Second, cfg.Session.Policy.Max)
	assert.Equal(t, 10*time.Second, cfg.Session.Policy.StartRetryDelay)
	assert.Equal(t, "s.whatsapp.net", cfg.Transport.Domain)
	assert.Equal(t, "pt", cfg.Transcription.Language)
	assert.Equal(t, ":3001", cfg.Server.Addr)
	assert.Empty(t, cfg.Router.WebhookURL)
	assert.Nil(t, cfg.Sheets)
}

func TestLoadOverrides(t *testing.T) {
	clearSheetsEnv(t)

	v := viper.New()
	v.Set("database.path", "/tmp/chat.db")
	v.Set("session.store", "FILE")
	v.Set("session.credentials_path", "/tmp/creds.json")
	v.Set("session.backoff_step", "1s")
	v.Set("session.backoff_max", "4s")
	v.Set("router.webhook_url", "https://hooks.example/images")
	v.Set("documents.url_template", "https://clinic.example/docs/{id}.pdf")
	v.Set("sheets.service_account_path", "/etc/sa.json")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, StoreFile, cfg.Session.Store)
	assert.Equal(t, "/tmp/creds.json", cfg.Session.CredentialsPath)
	assert.Equal(t, time.Second, cfg.Session.Policy.Step)
	assert.Equal(t, 4*time.Second, cfg.Session.Policy.Max)
	assert.Equal(t, "https://hooks.example/images", cfg.Router.WebhookURL)
	require.NotNil(t, cfg.Sheets)
	assert.Equal(t, "/etc/sa.json", cfg.Sheets.ServiceAccountPath)
	assert.Equal(t, "Lançamentos", cfg.Sheets.LedgerSheet)
}

func TestLoadSheetsFromEnvironment(t *testing.T) {
	clearSheetsEnv(t)
	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "id")
	t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "secret")
	t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "refresh")

	cfg, err := LoadSheetsConfig(viper.New())
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, "refresh", cfg.RefreshToken)
}

func TestLoadSheetsRejectsBothAuthMethods(t *testing.T) {
	clearSheetsEnv(t)

	v := viper.New()
	v.Set("sheets.service_account_path", "/etc/sa.json")
	v.Set("sheets.client_id", "id")
	v.Set("sheets.client_secret", "secret")
	v.Set("sheets.refresh_token", "refresh")

	_, err := Load(v)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearSheetsEnv(t)

	tests := []struct {
		set     map[string]any
		wantErr error
		name    string
	}{
		{name: "unknown store", set: map[string]any{"session.store": "redis"}, wantErr: common.ErrInvalidConfig},
		{name: "file store without path", set: map[string]any{"session.store": "file", "session.credentials_path": ""}, wantErr: common.ErrMissingConfig},
		{name: "negative attempts", set: map[string]any{"session.max_reconnect_attempts": -1}, wantErr: common.ErrInvalidConfig},
		{name: "step above max", set: map[string]any{"session.backoff_step": "40s"}, wantErr: common.ErrInvalidConfig},
		{name: "webhook not http", set: map[string]any{"router.webhook_url": "ftp://x"}, wantErr: common.ErrInvalidConfig},
		{name: "template without id", set: map[string]any{"documents.url_template": "https://x/doc.pdf"}, wantErr: common.ErrInvalidConfig},
		{name: "empty addr", set: map[string]any{"server.addr": ""}, wantErr: common.ErrMissingConfig},
		{name: "bad log level", set: map[string]any{"logging.level": "loud"}, wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("SPICECHAT_TEST_DIR", "/srv/data")

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "~", want: home},
		{in: "~/db.sqlite", want: filepath.Join(home, "db.sqlite")},
		{in: "$SPICECHAT_TEST_DIR/db.sqlite", want: "/srv/data/db.sqlite"},
		{in: "/abs/path", want: "/abs/path"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandPath(tt.in), tt.in)
	}
}
