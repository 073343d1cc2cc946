// Package errors provides standardized error handling patterns for eventgraph components.
//
// # Overview
//
// Errors fall into three classes: Transient (temporary, retryable), Invalid (bad input
// or a missing record, not retryable), and Fatal (unrecoverable, stop processing).
// Components decide between backing off and failing the caller from the class alone.
//
// # Error Wrapping Pattern
//
// All wrapping follows one format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions attach a class while wrapping:
//
//	errors.WrapTransient(err, "Bus", "Start", "connect broker")
//	errors.WrapInvalid(err, "Config", "Validate", "parse timeout")
//	errors.WrapFatal(err, "Gateway", "Start", "listen")
//
// # Not Found
//
// Record lookups by id return a NotFoundError carrying the entity kind and id:
//
//	u, err := st.User(id)
//	if errors.IsNotFound(err) {
//	    // err.Error() == "User not found"
//	}
//
// The GraphQL boundary maps NotFoundError to a response error with code NOT_FOUND.
// NotFound is never retried: it is terminal for the operation that triggered it.
package errors
