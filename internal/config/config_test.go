package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load_EmptyPath_ReturnsDefaults(t *testing.T) {
	p, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, Default(), p)
	assert.Equal(t, 14*24*time.Hour, p.LoanPeriod)
}

func Test_Parse_OverridesOnlyGivenKeys(t *testing.T) {
	p, err := Parse(strings.NewReader("max_renewals: 3\nloan_period: 168h\n"))

	require.NoError(t, err)
	assert.Equal(t, 3, p.MaxRenewals)
	assert.Equal(t, 7*24*time.Hour, p.LoanPeriod)
	assert.Equal(t, DefaultReminderWindow, p.ReminderWindow)
}

func Test_Parse_EmptyDocument_ReturnsDefaults(t *testing.T) {
	p, err := Parse(strings.NewReader(""))

	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func Test_Parse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("max_renewal: 3\n"))

	assert.Error(t, err)
}

func Test_Parse_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"zero loan period":    "loan_period: 0s\n",
		"negative renewals":   "max_renewals: -1\n",
		"zero claim attempts": "max_claim_attempts: 0\n",
		"zero queue":          "cart_queue_size: 0\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func Test_Load_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reminder_window: 48h\n"), 0o644))

	p, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, p.ReminderWindow)
}

func Test_Load_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Error(t, err)
}
