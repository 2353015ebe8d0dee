package qwen

import (
	"github.com/ScriptSmith/hadrian/providers"
	"github.com/ScriptSmith/hadrian/providers/openaicompat"
	"go.uber.org/zap"
)

// QwenProvider 实现阿里巴巴通义千问 LLM 提供者.
// Qwen 使用 OpenAI 兼容的 API 格式.
type QwenProvider struct {
	*openaicompat.Provider
}

// NewQwenProvider 创建新的 Qwen 提供者实例.
func NewQwenProvider(cfg providers.QwenConfig, logger *zap.Logger) *QwenProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://dashscope.aliyuncs.com"
	}

	return &QwenProvider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName:       "qwen",
			APIKey:             cfg.APIKey,
			BaseURL:            cfg.BaseURL,
			DefaultModel:       cfg.Model,
			FallbackModel:      "qwen3-235b-a22b",
			Timeout:            cfg.Timeout,
			EndpointPath:       "/compatible-mode/v1/chat/completions",
			ModelsEndpoint:     "/compatible-mode/v1/models",
			ImagesEndpoint:     "/compatible-mode/v1/images/generations",
			SpeechEndpoint:     "/compatible-mode/v1/audio/speech",
			EmbeddingsEndpoint: "/compatible-mode/v1/embeddings",
		}, logger),
	}
}
