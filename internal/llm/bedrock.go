package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/bedrockruntime"

	"github.com/mgpai22/subtrans/internal/llmerr"
)

const DefaultBedrockModel = "anthropic.claude-3-5-haiku-20241022-v1:0"

// bedrockAnthropicRequest/bedrockAnthropicResponse are the Bedrock
// "anthropic_version" message envelope: Claude models hosted on Bedrock
// accept the same Messages wire shape as the direct Anthropic API, so
// BedrockClient reuses the request/response fields AnthropicClient builds
// instead of inventing a new envelope.
type bedrockAnthropicRequest struct {
	AnthropicVersion string                    `json:"anthropic_version"`
	MaxTokens        int                       `json:"max_tokens"`
	System           string                    `json:"system,omitempty"`
	Messages         []bedrockAnthropicMessage `json:"messages"`
}

type bedrockAnthropicMessage struct {
	Role    string                 `json:"role"`
	Content []bedrockAnthropicPart `json:"content"`
}

type bedrockAnthropicPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type bedrockAnthropicResponse struct {
	Content []bedrockAnthropicPart `json:"content"`
}

// BedrockClient invokes Claude models hosted on Amazon Bedrock via
// aws-sdk-go's bedrockruntime service client, reusing the teacher's
// already-required aws-sdk-go dependency (previously unused in the
// teacher tree) for a provider the pack otherwise leaves unimplemented.
type BedrockClient struct {
	client *bedrockruntime.BedrockRuntime
	model  string
}

func NewBedrock(region, model string) (*BedrockClient, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, llmerr.Wrap(llmerr.KindFatal, "bedrock", err)
	}

	if model == "" {
		model = DefaultBedrockModel
	}

	return &BedrockClient{
		client: bedrockruntime.New(sess),
		model:  model,
	}, nil
}

func (c *BedrockClient) Provider() string { return "bedrock" }
func (c *BedrockClient) Model() string    { return c.model }

func (c *BedrockClient) Complete(ctx context.Context, req Request) (Response, error) {
	payload := bedrockAnthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        4096,
		System:           req.System,
		Messages: []bedrockAnthropicMessage{
			{Role: "user", Content: []bedrockAnthropicPart{{Type: "text", Text: req.User}}},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, llmerr.Wrap(llmerr.KindFatal, "bedrock", err)
	}

	out, err := c.client.InvokeModelWithContext(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return Response{}, c.classifyError(err)
	}

	var parsed bedrockAnthropicResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return Response{}, llmerr.Wrap(llmerr.KindParse, "bedrock", err)
	}

	var text string
	for _, part := range parsed.Content {
		text += part.Text
	}
	if text == "" {
		return Response{}, llmerr.New(llmerr.KindParse, "bedrock", "no text in response")
	}

	return Response{Text: text}, nil
}

func (c *BedrockClient) classifyError(err error) error {
	var awsErr awserr.Error
	if e, ok := err.(awserr.Error); ok {
		awsErr = e
		switch awsErr.Code() {
		case bedrockruntime.ErrCodeThrottlingException, bedrockruntime.ErrCodeServiceUnavailableException, bedrockruntime.ErrCodeInternalServerException:
			return llmerr.Wrap(llmerr.KindTransient, "bedrock", err)
		case bedrockruntime.ErrCodeAccessDeniedException:
			return llmerr.Wrap(llmerr.KindFatal, "bedrock", err)
		}
		return llmerr.Wrap(llmerr.KindFatal, "bedrock", fmt.Errorf("%s: %w", awsErr.Code(), err))
	}
	return llmerr.Wrap(llmerr.KindTransient, "bedrock", err)
}
