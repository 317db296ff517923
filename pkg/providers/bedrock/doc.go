// Package bedrock provides an LLM client for models hosted on AWS Bedrock.
//
// Requests are encoded per model family (Anthropic Claude, Amazon Titan and
// Meta Llama) and streamed through InvokeModelWithResponseStream. The
// control plane client is used to list the foundation models available in
// the configured region.
//
// Credentials come from the default AWS chain (environment, shared profile,
// IAM role). The region is read from Extra["region"] and defaults to
// us-east-1:
//
//	client, err := bedrock.NewClient(llm.ClientConfig{
//	    Model: "anthropic.claude-3-haiku-20240307-v1:0",
//	    Extra: map[string]string{"region": "eu-west-1"},
//	})
package bedrock
