package acl

import (
	"fmt"
	"strings"
)

// Precondition identifiers surfaced on ACL write failures, as defined by
// RFC 3744 section 8.1.1. These strings are stable: the protocol layer
// embeds them verbatim in DAV:error response bodies.
const (
	ConditionNoProtectedACEConflict = "no-protected-ace-conflict"
	ConditionDenyBeforeGrant        = "deny-before-grant"
	ConditionNotSupportedPrivilege  = "not-supported-privilege"
	ConditionNoACEConflict          = "no-ace-conflict"
	ConditionRecognizedPrincipal    = "recognized-principal"
)

// PreconditionError reports that a submitted ACL violated one of the ACL
// method preconditions. It is always recoverable: the client can correct
// the ACL and resubmit.
type PreconditionError struct {
	// Condition is one of the Condition* identifiers.
	Condition string

	// Namespace qualifies the condition element, normally DAV:.
	Namespace string

	// Detail is a human-readable explanation for logs.
	Detail string
}

func (e *PreconditionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("acl precondition %s failed: %s", e.Condition, e.Detail)
	}
	return fmt.Sprintf("acl precondition %s failed", e.Condition)
}

func preconditionErr(condition, format string, args ...any) *PreconditionError {
	return &PreconditionError{
		Condition: condition,
		Namespace: DAVNamespace,
		Detail:    fmt.Sprintf(format, args...),
	}
}

// ResourceDenial records the privileges denied on one resource during a
// privilege check.
type ResourceDenial struct {
	URL        string
	Privileges []Privilege
}

// AccessDeniedError reports every resource on which a privilege check
// failed, not just the first. The protocol boundary translates it into a
// 403 with a need-privileges body, or into a re-challenge when the actor
// is unauthenticated; that decision belongs to the boundary, not here.
type AccessDeniedError struct {
	Denials []ResourceDenial
}

func (e *AccessDeniedError) Error() string {
	parts := make([]string, 0, len(e.Denials))
	for _, d := range e.Denials {
		privs := make([]string, len(d.Privileges))
		for i, p := range d.Privileges {
			privs[i] = p.String()
		}
		parts = append(parts, fmt.Sprintf("%s: %s", d.URL, strings.Join(privs, ", ")))
	}
	return "access denied: " + strings.Join(parts, "; ")
}
