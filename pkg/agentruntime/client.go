package agentruntime

import (
	"context"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/generativeaiagentruntime"
)

// Client is the production Caller backed by the OCI SDK. It is bound to the
// configuration provider it was constructed with; credential refresh is done
// by building a new Client, never by mutating an existing one.
type Client struct {
	inner generativeaiagentruntime.GenerativeAiAgentRuntimeClient
}

// NewClient builds an authenticated runtime client. An empty region keeps the
// region resolved from the configuration provider.
func NewClient(provider common.ConfigurationProvider, region string) (*Client, error) {
	inner, err := generativeaiagentruntime.NewGenerativeAiAgentRuntimeClientWithConfigurationProvider(provider)
	if err != nil {
		return nil, err
	}
	if region != "" {
		inner.SetRegion(region)
	}
	return &Client{inner: inner}, nil
}

// CreateSession implements Caller.
func (c *Client) CreateSession(ctx context.Context, in CreateSessionInput) (string, error) {
	resp, err := c.inner.CreateSession(ctx, generativeaiagentruntime.CreateSessionRequest{
		AgentEndpointId: common.String(in.AgentEndpointID),
		CreateSessionDetails: generativeaiagentruntime.CreateSessionDetails{
			DisplayName: common.String(in.DisplayName),
			Description: common.String(in.Description),
		},
	})
	if err != nil {
		return "", wrapRemote("create session", err)
	}
	if resp.Id == nil || *resp.Id == "" {
		return "", wrapRemote("create session", errMissingSessionID)
	}
	return *resp.Id, nil
}

// Chat implements Caller.
func (c *Client) Chat(ctx context.Context, in ChatInput) (ChatResult, error) {
	resp, err := c.inner.Chat(ctx, generativeaiagentruntime.ChatRequest{
		AgentEndpointId: common.String(in.AgentEndpointID),
		ChatDetails: generativeaiagentruntime.ChatDetails{
			SessionId:    common.String(in.SessionID),
			UserMessage:  common.String(in.UserMessage),
			ShouldStream: common.Bool(false),
		},
	})
	if err != nil {
		return ChatResult{}, wrapRemote("chat", err)
	}

	var out ChatResult
	if resp.Message != nil && resp.Message.Content != nil && resp.Message.Content.Text != nil {
		out.Text = *resp.Message.Content.Text
	}
	return out, nil
}
