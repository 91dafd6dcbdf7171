// Package dispatch contains the session acquisition and retry orchestration
// in front of the agent runtime.
//
// The dispatcher drives a small, explicitly bounded decision tree: a stale
// session is recreated and the message retried once; a rejected identity is
// re-acquired and the message retried once with the same session; only the
// compound case of a session expiring behind a credential refresh earns a
// third and final attempt. Anything else is surfaced immediately.
package dispatch
