// Copyright 2024 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package dispatch implements the ResilientDispatcher: the retry + circuit
breaker envelope wrapped around every call to a providers.Provider.

# Architecture

	caller -> Dispatcher.Dispatch -> CircuitBreakerRegistry[provider] -> Retryer -> providers.Provider

Each provider name gets exactly one circuit breaker instance, shared across
every operation family dispatched against it, so a chat-completion failure
streak and an embeddings failure streak against the same upstream coordinate
through one breaker. Retry policy, by contrast, is chosen per operation
family (chat vs embedding vs read-only vs image generation) since their
latency and attempt-count tradeoffs differ — see retry.ForEmbedding,
retry.ForReadOnly and retry.ForImageGeneration.

# Usage

	registry := dispatch.NewCircuitBreakerRegistry(nil, logger)
	d := dispatch.New(registry, logger)

	resp, err := dispatch.Call(ctx, d, "openai", dispatch.FamilyChat, func(ctx context.Context) (*providers.ChatResponse, error) {
	    return provider.Completion(ctx, req)
	})

# Cancellation vs failure

A caller-cancelled context must not trip the breaker. Dispatch distinguishes
ctx.Err() from an upstream-produced error before recording the outcome.
*/
package dispatch
