package server

import "context"

// ChatRequest is the inbound chat payload
type ChatRequest struct {
	UserMessage string  `json:"user_message"`
	SessionID   *string `json:"session_id"`
}

// ChatResponse is the successful chat reply
type ChatResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
}

// ErrorResponse is the error reply shape
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// ChatFunc routes a validated chat request into the dispatch core. It returns
// the answer text and the session identifier the successful remote call used.
type ChatFunc func(ctx context.Context, userMessage, sessionID string) (string, string, error)
