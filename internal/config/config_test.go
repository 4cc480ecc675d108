package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "inspect.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Vision.Model)

	assert.InDelta(t, 0.3, cfg.Gate.RejectThreshold, 0.0001)
	assert.InDelta(t, 0.4, cfg.Gate.OptimizeThreshold, 0.0001)
	assert.InDelta(t, 0.7, cfg.Gate.WarningThreshold, 0.0001)
	assert.Equal(t, 200, cfg.Gate.FullCallTokens)

	assert.Equal(t, 3, cfg.Batch.ChunkSize)
	assert.Equal(t, 2, cfg.Batch.MaxRetries)
	assert.Equal(t, 180, cfg.Batch.ItemTimeoutSecs)

	assert.InDelta(t, 0.95, cfg.Confidence.Reliability["simple"], 0.0001)
	assert.InDelta(t, 0.40, cfg.Confidence.Penalty["extreme"], 0.0001)

	assert.InDelta(t, 0.3, cfg.Monitoring.MaxFailRate, 0.0001)
	assert.Equal(t, 24, cfg.Monitoring.LookbackHours)

	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("INSPECT_STORE_DRIVER", "postgres")
	t.Setenv("INSPECT_BATCH_CHUNK_SIZE", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 5, cfg.Batch.ChunkSize)
}

func TestValidate_QualityWeightsMustSumToOne(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Quality.SharpnessWeight = 0.5
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quality weights")
}

func TestValidate_ConfidenceWeightsMustSumToOne(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Confidence.HistoricalWeight = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confidence weights")
}

func TestValidate_GateThresholdOrdering(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Gate.OptimizeThreshold = 0.2
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gate thresholds")
}

func TestValidate_ChunkSizePositive(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Batch.ChunkSize = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_size")
}

func TestQualityConfig_WeightSum(t *testing.T) {
	q := QualityConfig{
		SharpnessWeight:      0.25,
		BrightnessWeight:     0.15,
		ContrastWeight:       0.20,
		NoiseWeight:          0.10,
		ResolutionWeight:     0.15,
		CompressionWeight:    0.05,
		ObjectCoverageWeight: 0.10,
	}
	assert.InDelta(t, 1.0, q.WeightSum(), 0.0001)
}
