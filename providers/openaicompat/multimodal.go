package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/ScriptSmith/hadrian/providers"
)

// DefaultHealthCheckModel returns the model HealthCheck-adjacent callers
// should probe with, falling back through HealthCheckModel, DefaultModel,
// and FallbackModel in that order.
func (p *Provider) DefaultHealthCheckModel() string {
	if p.Cfg.HealthCheckModel != "" {
		return p.Cfg.HealthCheckModel
	}
	if p.Cfg.DefaultModel != "" {
		return p.Cfg.DefaultModel
	}
	return p.Cfg.FallbackModel
}

// doJSON marshals body, POSTs it to path, and decodes the response into out.
func (p *Provider) doJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq, p.resolveAPIKey(ctx))

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return &providers.Error{Code: providers.ErrUpstreamError, Message: err.Error(), HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		return providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &providers.Error{Code: providers.ErrUpstreamError, Message: err.Error(), HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name()}
	}
	return nil
}

// CreateEmbedding embeds text inputs via the OpenAI-compatible /embeddings endpoint.
func (p *Provider) CreateEmbedding(ctx context.Context, req *providers.EmbeddingRequest) (*providers.EmbeddingResponse, error) {
	var out providers.EmbeddingResponse
	if err := p.doJSON(ctx, p.Cfg.EmbeddingsEndpoint, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateImage generates images via the OpenAI-compatible /images/generations endpoint.
func (p *Provider) CreateImage(ctx context.Context, req *providers.ImageGenerationRequest) (*providers.ImageGenerationResponse, error) {
	var out providers.ImageGenerationResponse
	if err := p.doJSON(ctx, p.Cfg.ImagesEndpoint, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// multipartField is one non-file field of a multipart request.
type multipartField struct {
	name, value string
}

func (p *Provider) doMultipart(ctx context.Context, path, fileField, filename string, file []byte, extra []multipartField) (*http.Response, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(fileField, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(file); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	for _, f := range extra {
		if f.value == "" {
			continue
		}
		if err := writer.WriteField(f.name, f.value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", f.name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.resolveAPIKey(ctx))
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, &providers.Error{Code: providers.ErrUpstreamError, Message: err.Error(), HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name()}
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}
	return resp, nil
}

// CreateImageEdit edits an existing image via the /images/edits endpoint.
func (p *Provider) CreateImageEdit(ctx context.Context, req *providers.ImageEditRequest) (*providers.ImageGenerationResponse, error) {
	filename := req.ImageFilename
	if filename == "" {
		filename = "image.png"
	}
	extra := []multipartField{
		{"model", req.Model}, {"prompt", req.Prompt}, {"size", req.Size},
		{"response_format", req.ResponseFormat}, {"user", req.User},
	}
	if req.N > 0 {
		extra = append(extra, multipartField{"n", fmt.Sprintf("%d", req.N)})
	}
	resp, err := p.doMultipart(ctx, p.Cfg.ImageEditEndpoint, "image", filename, req.Image, extra)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out providers.ImageGenerationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &providers.Error{Code: providers.ErrUpstreamError, Message: err.Error(), HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name()}
	}
	return &out, nil
}

// CreateImageVariation generates variations of an image via the /images/variations endpoint.
func (p *Provider) CreateImageVariation(ctx context.Context, req *providers.ImageVariationRequest) (*providers.ImageGenerationResponse, error) {
	filename := req.ImageFilename
	if filename == "" {
		filename = "image.png"
	}
	extra := []multipartField{{"model", req.Model}, {"size", req.Size}, {"response_format", req.ResponseFormat}, {"user", req.User}}
	if req.N > 0 {
		extra = append(extra, multipartField{"n", fmt.Sprintf("%d", req.N)})
	}
	resp, err := p.doMultipart(ctx, p.Cfg.ImageVariationEndpoint, "image", filename, req.Image, extra)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out providers.ImageGenerationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &providers.Error{Code: providers.ErrUpstreamError, Message: err.Error(), HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name()}
	}
	return &out, nil
}

// CreateSpeech synthesizes audio from text via the /audio/speech endpoint.
// The response content-type is preserved, defaulting to "audio/mpeg".
func (p *Provider) CreateSpeech(ctx context.Context, req *providers.AudioGenerationRequest) (*providers.AudioGenerationResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(p.Cfg.SpeechEndpoint), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq, p.resolveAPIKey(ctx))

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, &providers.Error{Code: providers.ErrUpstreamError, Message: err.Error(), HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &providers.Error{Code: providers.ErrUpstreamError, Message: err.Error(), HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name()}
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return &providers.AudioGenerationResponse{Audio: audio, ContentType: contentType}, nil
}

// transcriptionContentType maps a requested response_format to the content
// type the caller should treat the response body as.
func transcriptionContentType(responseFormat string) string {
	switch responseFormat {
	case "text", "srt", "vtt":
		return "text/plain"
	default:
		return "application/json"
	}
}

// CreateTranscription transcribes audio via the /audio/transcriptions endpoint.
func (p *Provider) CreateTranscription(ctx context.Context, req *providers.AudioTranscriptionRequest) (*providers.AudioTranscriptionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.Cfg.DefaultTranscriptionModel
	}
	filename := req.Filename
	if filename == "" {
		filename = "audio.mp3"
	}
	extra := []multipartField{
		{"model", model}, {"language", req.Language}, {"prompt", req.Prompt}, {"response_format", req.ResponseFormat},
	}
	if req.Temperature > 0 {
		extra = append(extra, multipartField{"temperature", fmt.Sprintf("%f", req.Temperature)})
	}
	resp, err := p.doMultipart(ctx, p.Cfg.TranscriptionsEndpoint, "file", filename, req.File, extra)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	contentType := transcriptionContentType(req.ResponseFormat)
	if contentType == "text/plain" {
		text, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &providers.Error{Code: providers.ErrUpstreamError, Message: err.Error(), HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name()}
		}
		return &providers.AudioTranscriptionResponse{Text: strings.TrimSpace(string(text)), ContentType: contentType}, nil
	}

	var out providers.AudioTranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &providers.Error{Code: providers.ErrUpstreamError, Message: err.Error(), HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name()}
	}
	out.ContentType = contentType
	return &out, nil
}

// CreateTranslation translates audio into English via the /audio/translations endpoint.
func (p *Provider) CreateTranslation(ctx context.Context, req *providers.TranslationRequest) (*providers.TranslationResponse, error) {
	model := req.Model
	if model == "" {
		model = p.Cfg.DefaultTranscriptionModel
	}
	filename := req.Filename
	if filename == "" {
		filename = "audio.mp3"
	}
	extra := []multipartField{{"model", model}, {"prompt", req.Prompt}, {"response_format", req.ResponseFormat}}
	if req.Temperature > 0 {
		extra = append(extra, multipartField{"temperature", fmt.Sprintf("%f", req.Temperature)})
	}
	resp, err := p.doMultipart(ctx, p.Cfg.TranslationsEndpoint, "file", filename, req.File, extra)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	contentType := transcriptionContentType(req.ResponseFormat)
	if contentType == "text/plain" {
		text, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &providers.Error{Code: providers.ErrUpstreamError, Message: err.Error(), HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name()}
		}
		return &providers.TranslationResponse{Text: strings.TrimSpace(string(text)), ContentType: contentType}, nil
	}

	var out providers.TranslationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &providers.Error{Code: providers.ErrUpstreamError, Message: err.Error(), HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name()}
	}
	out.ContentType = contentType
	return &out, nil
}

// CreateCompletion sends a legacy (pre-chat) text completion request.
func (p *Provider) CreateCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.Cfg.DefaultModel
	}
	if model == "" {
		model = p.Cfg.FallbackModel
	}
	body := *req
	body.Model = model

	var out providers.CompletionResponse
	if err := p.doJSON(ctx, p.Cfg.CompletionsEndpoint, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateResponses is unimplemented on the generic OpenAI-compatible base; the
// Responses API is an OpenAI-specific 2025 surface. The openai package
// overrides this with a real implementation.
func (p *Provider) CreateResponses(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	return nil, providers.NotSupportedError(p.Name(), "responses api")
}
