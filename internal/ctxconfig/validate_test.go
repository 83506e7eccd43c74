package ctxconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}

func TestValidateRejectsUnknownDefaultProvider(t *testing.T) {
	cfg := Default()
	cfg.DefaultProvider = "bedrock"
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsTopKOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Search.TopK = 0
	assert.Error(t, Validate(cfg))

	cfg.Search.TopK = 101
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsThresholdOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Eval.Thresholds.MRR = 1.5
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsNonPositiveBatchSize(t *testing.T) {
	cfg := Default()
	cfg.Embedding.BatchSize = 0
	assert.Error(t, Validate(cfg))
}

func TestValidateCollectsMultipleProblems(t *testing.T) {
	cfg := Default()
	cfg.DefaultProvider = "bogus"
	cfg.Search.TopK = -1
	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "default_provider")
	assert.Contains(t, err.Error(), "top_k")
}
