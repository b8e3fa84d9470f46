package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig(t *testing.T) {
	t.Run("デフォルト設定が妥当なのだ", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.Equal(t, DefaultGeminiModel, cfg.GeminiModel)
		assert.Equal(t, DefaultImageModel, cfg.ImageModel)
		assert.Equal(t, DefaultStyleSuffix, cfg.StyleSuffix)
		assert.Equal(t, DefaultRateInterval, cfg.RateInterval)
		assert.NotZero(t, cfg.RequestTimeout)
	})

	t.Run("NewConfigはAPIキーをセットするのだ", func(t *testing.T) {
		cfg := NewConfig("test-key")
		assert.Equal(t, "test-key", cfg.GeminiAPIKey)
		assert.Equal(t, DefaultGeminiModel, cfg.GeminiModel)
	})
}
