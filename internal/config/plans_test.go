package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewPlansHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plans.yml")
	content := `rateLimit:
  windowSeconds: 30
  plans:
    none:
      perKey: 1
      perUser: 2
      perIp: 3
    Team:
      perKey: 40
      perUser: 80
      perIp: 20
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	holder, err := NewPlansHolder(Config{PlansConfigPath: path}, zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 30, cfg.WindowSeconds)
	assert.Equal(t, PlanLimits{PerKey: 1, PerUser: 2, PerIP: 3}, cfg.Plans["none"])
	assert.Equal(t, PlanLimits{PerKey: 40, PerUser: 80, PerIP: 20}, cfg.Plans["team"])
}

func TestNewPlansHolderRejectsMissingDefaultPlan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plans.yml")
	content := `rateLimit:
  windowSeconds: 60
  plans:
    pro:
      perKey: 30
      perUser: 60
      perIp: 20
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := NewPlansHolder(Config{PlansConfigPath: path}, zap.NewNop())
	require.Error(t, err)
}

func TestNewPlansHolderMissingExplicitFile(t *testing.T) {
	_, err := NewPlansHolder(Config{PlansConfigPath: filepath.Join(t.TempDir(), "absent.yml")}, zap.NewNop())
	require.Error(t, err)
}

func TestDefaultPlansConfig(t *testing.T) {
	cfg := DefaultPlansConfig()
	require.NoError(t, validatePlans(cfg))
	assert.Equal(t, 60, cfg.WindowSeconds)
	assert.Equal(t, PlanLimits{PerKey: 100, PerUser: 200, PerIP: 20}, cfg.Plans["max"])
}
