// Package completion turns provider token streams into coalesced text
// chunks and retries transient provider failures.
//
// Basic usage:
//
//	completer := completion.New(client, completion.WithSystemPrompt("You are terse."))
//	for chunk := range completer.Stream(ctx, llm.ChatRequest{Messages: msgs}) {
//		if chunk.Err != nil {
//			return chunk.Err
//		}
//		render(chunk.Text) // each chunk is the full text so far
//	}
//
// A retry restarts the provider stream from scratch; chunks of the new
// attempt carry a higher Attempt number and supersede earlier ones.
package completion
