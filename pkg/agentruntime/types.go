package agentruntime

import "context"

// CreateSessionInput carries the parameters for a remote session creation.
type CreateSessionInput struct {
	AgentEndpointID string
	DisplayName     string
	Description     string
}

// ChatInput carries one user turn addressed to an existing remote session.
type ChatInput struct {
	AgentEndpointID string
	SessionID       string
	UserMessage     string
}

// ChatResult is the extracted remote answer. Text may be empty when the
// response payload carried no textual content.
type ChatResult struct {
	Text string
}

// Caller is the outbound contract of the remote agent runtime. The production
// implementation is Client; tests inject scripted fakes.
type Caller interface {
	// CreateSession mints a new remote session and returns its identifier.
	CreateSession(ctx context.Context, in CreateSessionInput) (string, error)

	// Chat sends a user message to an existing session.
	Chat(ctx context.Context, in ChatInput) (ChatResult, error)
}
