package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("ORG_DOMAIN", "example.com")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "example.com", cfg.OrgDomain)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10, cfg.FetchLimit)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "./data/meetcost.db", cfg.Store.DBPath)
	assert.Equal(t, TablesSQLite, cfg.Tables.Backend)
	assert.Equal(t, 993, cfg.IMAP.Port)
	assert.Equal(t, "INBOX", cfg.IMAP.Mailbox)
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.Equal(t, 336*time.Hour, cfg.Feedback.LinkTTL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestParseRequiresDomain(t *testing.T) {
	t.Setenv("ORG_DOMAIN", "")

	_, err := Parse()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{"csv tables", map[string]string{"TABLE_BACKEND": "csv", "ROLE_TABLE_PATH": "r.csv"}, false},
		{"unknown table backend", map[string]string{"TABLE_BACKEND": "xlsx"}, true},
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres"}, true},
		{"postgres with url", map[string]string{"STORE_DRIVER": "postgres", "DATABASE_URL": "postgres://u:p@localhost/meetcost"}, false},
		{"unknown driver", map[string]string{"STORE_DRIVER": "mysql"}, true},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}, true},
		{"zero fetch limit", map[string]string{"FETCH_LIMIT": "0"}, true},
		{"short signing key", map[string]string{"FEEDBACK_SIGNING_KEY": "short"}, true},
		{"bad base url", map[string]string{"FEEDBACK_BASE_URL": "not a url"}, true},
		{"bad domain", map[string]string{"ORG_DOMAIN": "not a domain"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ORG_DOMAIN", "example.com")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Parse()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMailSettings(t *testing.T) {
	t.Setenv("ORG_DOMAIN", "example.com")
	t.Setenv("FETCH_LIMIT", "25")

	cfg, err := Parse()
	require.NoError(t, err)

	_, err = cfg.MailSource()
	assert.Error(t, err, "IMAP settings are required for polling")
	_, err = cfg.MailSink()
	assert.Error(t, err, "SMTP settings are required for sending")

	t.Setenv("IMAP_HOST", "imap.example.com")
	t.Setenv("IMAP_USER", "bot@example.com")
	t.Setenv("IMAP_PASS", "secret")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_USER", "bot@example.com")
	t.Setenv("SMTP_PASS", "secret")

	cfg, err = Parse()
	require.NoError(t, err)

	src, err := cfg.MailSource()
	require.NoError(t, err)
	assert.Equal(t, "imap.example.com", src.Host)
	assert.Equal(t, 993, src.Port)
	assert.Equal(t, 25, src.FetchLimit)

	sink, err := cfg.MailSink()
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", sink.Host)
	assert.Equal(t, "bot@example.com", sink.Username)
}
