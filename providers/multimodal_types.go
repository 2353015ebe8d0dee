package providers

import "time"

// =============================================================================
// Image generation / editing / variation
// =============================================================================

// ImageGenerationRequest represents a text-to-image generation request.
type ImageGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Style          string `json:"style,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"` // url, b64_json
	User           string `json:"user,omitempty"`
}

// ImageGenerationResponse is the shared response shape for image generation,
// editing, and variation operations.
type ImageGenerationResponse struct {
	Created int64   `json:"created"`
	Data    []Image `json:"data"`
}

// Image is a single generated or edited image.
type Image struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// ImageEditRequest edits an existing image according to a prompt, optionally
// constrained to a masked region. Image/Mask are multipart file parts.
type ImageEditRequest struct {
	Model          string `json:"-"`
	Image          []byte `json:"-"`
	ImageFilename  string `json:"-"`
	Mask           []byte `json:"-"`
	MaskFilename   string `json:"-"`
	Prompt         string `json:"-"`
	N              int    `json:"-"`
	Size           string `json:"-"`
	ResponseFormat string `json:"-"`
	User           string `json:"-"`
}

// ImageVariationRequest generates variations of an existing image.
type ImageVariationRequest struct {
	Model          string `json:"-"`
	Image          []byte `json:"-"`
	ImageFilename  string `json:"-"`
	N              int    `json:"-"`
	Size           string `json:"-"`
	ResponseFormat string `json:"-"`
	User           string `json:"-"`
}

// =============================================================================
// Speech synthesis / transcription / translation
// =============================================================================

// AudioGenerationRequest asks a provider to synthesize speech from text.
type AudioGenerationRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice,omitempty"`
	Speed          float32 `json:"speed,omitempty"`
	ResponseFormat string  `json:"response_format,omitempty"` // mp3, opus, aac, flac
}

// AudioGenerationResponse carries raw synthesized audio bytes. ContentType
// reflects the upstream response's Content-Type header, defaulting to
// "audio/mpeg" when the upstream omits it.
type AudioGenerationResponse struct {
	Audio       []byte `json:"-"`
	ContentType string `json:"-"`
}

// AudioTranscriptionRequest transcribes spoken audio into text in its
// original language.
type AudioTranscriptionRequest struct {
	Model          string  `json:"-"`
	File           []byte  `json:"-"`
	Filename       string  `json:"-"`
	Language       string  `json:"-"`
	Prompt         string  `json:"-"`
	ResponseFormat string  `json:"-"` // json, text, srt, vtt, verbose_json
	Temperature    float32 `json:"-"`
}

// AudioTranscriptionResponse is the transcription result. ContentType
// reflects the format the caller asked for via ResponseFormat.
type AudioTranscriptionResponse struct {
	Text        string                 `json:"text"`
	Language    string                 `json:"language,omitempty"`
	Duration    float64                `json:"duration,omitempty"`
	Segments    []TranscriptionSegment `json:"segments,omitempty"`
	ContentType string                 `json:"-"`
}

// TranscriptionSegment is one timed segment of a verbose transcription.
type TranscriptionSegment struct {
	ID               int     `json:"id"`
	Seek             int     `json:"seek"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Tokens           []int   `json:"tokens"`
	Temperature      float32 `json:"temperature"`
	AvgLogprob       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
}

// TranslationRequest translates spoken audio directly into English text.
type TranslationRequest struct {
	Model          string  `json:"-"`
	File           []byte  `json:"-"`
	Filename       string  `json:"-"`
	Prompt         string  `json:"-"`
	ResponseFormat string  `json:"-"` // json, text
	Temperature    float32 `json:"-"`
}

// TranslationResponse is the translated-to-English text.
type TranslationResponse struct {
	Text        string `json:"text"`
	ContentType string `json:"-"`
}

// =============================================================================
// Embeddings
// =============================================================================

// EmbeddingRequest asks a provider to embed one or more text inputs.
type EmbeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	EncodingFormat string   `json:"encoding_format,omitempty"` // float, base64
	Dimensions     int      `json:"dimensions,omitempty"`
	User           string   `json:"user,omitempty"`
}

// EmbeddingResponse carries the resulting embedding vectors.
type EmbeddingResponse struct {
	Object string      `json:"object"`
	Data   []Embedding `json:"data"`
	Model  string      `json:"model"`
	Usage  ChatUsage   `json:"usage"`
}

// Embedding is a single embedding vector.
type Embedding struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// =============================================================================
// Legacy text completion
// =============================================================================

// CompletionRequest is a legacy (pre-chat) text completion request.
type CompletionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float32  `json:"temperature,omitempty"`
	TopP        float32  `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	N           int      `json:"n,omitempty"`
	User        string   `json:"user,omitempty"`
}

// CompletionResponse is the legacy text completion result.
type CompletionResponse struct {
	ID        string             `json:"id,omitempty"`
	Model     string             `json:"model"`
	Choices   []CompletionChoice `json:"choices"`
	Usage     ChatUsage          `json:"usage"`
	CreatedAt time.Time          `json:"created_at"`
}

// CompletionChoice is a single legacy completion choice.
type CompletionChoice struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
}
