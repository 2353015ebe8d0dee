package dispatch

import "github.com/ScriptSmith/hadrian/providers"

// NormalizeChatResponse fills optional-but-required fields an upstream may
// have omitted so every response conforms to the canonical OpenAI-compatible
// shape: choices[].logprobs and choices[].message.refusal must both be
// present (explicitly null), never absent, in a non-streaming response.
func NormalizeChatResponse(resp *providers.ChatResponse) *providers.ChatResponse {
	if resp == nil {
		return nil
	}
	for i := range resp.Choices {
		if resp.Choices[i].Logprobs == nil {
			resp.Choices[i].Logprobs = []byte("null")
		}
		// Message.Refusal is already a *string with no omitempty tag, so a
		// nil pointer already marshals to `"refusal":null` — nothing to do
		// beyond documenting the invariant here.
	}
	return resp
}
