package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewBillingConfigHolder_ReadsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "billing.yml")
	body := []byte(`billing:
  timezone: UTC
  vatRate: 5
  gccDefaults:
    capexRecoveryAmount: 1500
    withVat: true
    departmentId: 3
    letterId: 2
  queues:
    GAS_CONSUMPTION_CREATED: [gas-consumption, gcc-planner]
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	holder, err := NewBillingConfigHolder(Config{BillingConfigPath: path}, zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 5.0, cfg.VATRate)
	assert.Equal(t, 1500.0, cfg.GccDefaults.CapexRecoveryAmount)
	assert.True(t, cfg.GccDefaults.WithVat)
	assert.Equal(t, int64(3), cfg.GccDefaults.DepartmentID)
	assert.Equal(t, int64(2), cfg.GccDefaults.LetterID)
	assert.Equal(t, []string{"gas-consumption", "gcc-planner"}, cfg.QueuesFor("GAS_CONSUMPTION_CREATED"))
}

func TestNewBillingConfigHolder_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "billing.yml")
	require.NoError(t, os.WriteFile(path, []byte("billing:\n  vatRate: 150\n"), 0o600))

	_, err := NewBillingConfigHolder(Config{BillingConfigPath: path}, zap.NewNop())
	assert.Error(t, err)
}

func TestBillingConfigHolder_NilFallsBackToDefaults(t *testing.T) {
	var holder *BillingConfigHolder
	cfg := holder.Get()
	assert.Equal(t, DefaultBillingConfig().GccDefaults, cfg.GccDefaults)
	assert.Nil(t, cfg.QueuesFor("unknown"))
}
