// Package agentruntime wraps the OCI Generative AI Agents runtime behind a
// small Caller interface and converts its structured service failures into a
// local error type that the retry logic can classify without knowing anything
// about the SDK.
package agentruntime
