package bedrock

import (
	"context"
	"errors"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	bedrocktypes "github.com/aws/aws-sdk-go-v2/service/bedrock/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/inercia/go-baski/pkg/httperr"
	"github.com/inercia/go-baski/pkg/llm"
	"github.com/inercia/go-baski/pkg/providers/providerr"
)

const DefaultRegion = "us-east-1"

// Client implements the llm.Client interface for AWS Bedrock
type Client struct {
	control *bedrock.Client
	runtime *bedrockruntime.Client
	model   string
	region  string
}

// NewClient creates a new AWS Bedrock client
func NewClient(config llm.ClientConfig) (*Client, error) {
	region := DefaultRegion
	if r := config.Extra["region"]; r != "" {
		region = r
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if config.Timeout > 0 {
		opts = append(opts, awsconfig.WithHTTPClient(&http.Client{Timeout: config.Timeout}))
	}
	awsConfig, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, httperr.New(httperr.KindUnauthorized, 0, "loading AWS configuration: "+err.Error())
	}

	control := bedrock.NewFromConfig(awsConfig, func(o *bedrock.Options) {
		if endpoint := config.Extra["bedrock_endpoint"]; endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	runtime := bedrockruntime.NewFromConfig(awsConfig, func(o *bedrockruntime.Options) {
		if endpoint := config.Extra["bedrock_runtime_endpoint"]; endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		if config.BaseURL != "" {
			o.BaseEndpoint = aws.String(config.BaseURL)
		}
	})

	return &Client{
		control: control,
		runtime: runtime,
		model:   config.ModelOr(llm.DefaultBedrockModel),
		region:  region,
	}, nil
}

// StreamChatCompletion performs a streaming chat completion request
func (c *Client) StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamEvent, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	fam := familyFor(model)

	payload, err := fam.encode(req)
	if err != nil {
		return nil, httperr.New(httperr.KindBadRequest, 400, "encoding request: "+err.Error())
	}

	resp, err := c.runtime.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return nil, convertError(err)
	}

	stream := resp.GetStream()
	ch := make(chan llm.StreamEvent)

	go func() {
		defer close(ch)
		defer stream.Close()

		for event := range stream.Events() {
			chunk, ok := event.(*types.ResponseStreamMemberChunk)
			if !ok {
				continue
			}
			text, reason, err := fam.decode(chunk.Value.Bytes)
			if err != nil {
				send(ctx, ch, llm.NewErrorEvent(providerr.Convert(err)))
				return
			}
			if text != "" && !send(ctx, ch, llm.NewDeltaEvent(text)) {
				return
			}
			if reason != "" {
				send(ctx, ch, llm.NewDoneEvent(reason))
				return
			}
		}

		if err := stream.Err(); err != nil {
			send(ctx, ch, llm.NewErrorEvent(convertError(err)))
			return
		}
		send(ctx, ch, llm.NewDoneEvent(llm.FinishReasonStop))
	}()

	return ch, nil
}

func send(ctx context.Context, ch chan<- llm.StreamEvent, ev llm.StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// FoundationModel describes a model offered by Bedrock in a region.
type FoundationModel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Provider  string `json:"provider"`
	Streaming bool   `json:"streaming"`
}

// ListModels returns the text foundation models available in the client's
// region, optionally restricted to one model provider (e.g. "Anthropic").
func (c *Client) ListModels(ctx context.Context, provider string) ([]FoundationModel, error) {
	input := &bedrock.ListFoundationModelsInput{
		ByOutputModality: bedrocktypes.ModelModalityText,
	}
	if provider != "" {
		input.ByProvider = aws.String(provider)
	}

	out, err := c.control.ListFoundationModels(ctx, input)
	if err != nil {
		return nil, convertError(err)
	}

	models := make([]FoundationModel, 0, len(out.ModelSummaries))
	for _, s := range out.ModelSummaries {
		models = append(models, FoundationModel{
			ID:        aws.ToString(s.ModelId),
			Name:      aws.ToString(s.ModelName),
			Provider:  aws.ToString(s.ProviderName),
			Streaming: aws.ToBool(s.ResponseStreamingSupported),
		})
	}
	return models, nil
}

// Region returns the AWS region the client talks to.
func (c *Client) Region() string {
	return c.region
}

// ModelInfo returns information about the model being used
func (c *Client) ModelInfo() llm.ModelInfo {
	return llm.ModelInfo{
		Name:              c.model,
		Provider:          "bedrock",
		MaxTokens:         familyFor(c.model).maxTokens,
		SupportsStreaming: true,
	}
}

// Close cleans up any resources used by the client
func (c *Client) Close() error {
	return nil
}

// errorCodes maps Bedrock error codes to HTTP statuses.
var errorCodes = map[string]int{
	"AccessDeniedException":         403,
	"UnrecognizedClientException":   401,
	"ExpiredTokenException":         401,
	"ResourceNotFoundException":     404,
	"ValidationException":           400,
	"ThrottlingException":           429,
	"ServiceQuotaExceededException": 429,
	"ModelTimeoutException":         504,
	"ModelNotReadyException":        503,
	"ServiceUnavailableException":   503,
	"InternalServerException":       500,
	"ModelStreamErrorException":     500,
}

func convertError(err error) error {
	var status interface{ HTTPStatusCode() int }
	if errors.As(err, &status) && status.HTTPStatusCode() > 0 {
		return providerr.FromStatus(status.HTTPStatusCode(), err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if code, ok := errorCodes[apiErr.ErrorCode()]; ok {
			return providerr.FromStatus(code, err)
		}
	}
	return providerr.Convert(err)
}
