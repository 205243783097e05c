package acl

import (
	"context"
	"fmt"

	"github.com/perchdav/perch/internal/logger"
)

// MergeACL validates a client-submitted ACL against the resource's
// current effective ACL and merges it into the stored ACL (RFC 3744
// section 8.1). Merging replaces the non-protected, non-inherited portion
// of the current ACL; protected and inherited entries cannot be supplied
// by the client.
//
// Validation order per submitted entry:
//  1. no entry may target the principal of an existing protected entry
//  2. across the submitted list, every deny must precede every grant
//  3. every referenced privilege must exist in the resource's graph
//  4. no submitted entry may itself be protected or inherited
//  5. every principal must resolve to a recognized principal
//
// A violation returns a *PreconditionError; the client can correct the
// ACL and resubmit. On success the new stored ACL is the surviving
// protected entries followed by the submitted entries, superseding any
// existing entry with the same principal.
//
// The engine performs no locking of its own here: a merge is read,
// validate, write. Callers that need strict serializability between
// concurrent merges on one resource must wrap the call in the storage
// layer's transaction.
func (e *Engine) MergeACL(ctx context.Context, rctx *RequestContext, res Resource, submitted *ACL) error {
	// The current ACL is read in expanding mode so the private
	// inheritable markers survive the round trip back to storage.
	current, err := e.effectiveACL(ctx, res, true, true, nil)
	if err != nil {
		return err
	}
	if current == nil {
		// Access control disabled: nothing to merge into.
		return nil
	}

	supported := SupportedPrivileges(res)

	var sawGrant bool
	for i := range submitted.ACEs {
		ace := &submitted.ACEs[i]

		for j := range current.ACEs {
			old := &current.ACEs[j]
			if !ace.Principal.Same(old.Principal) {
				continue
			}
			if old.Protected {
				logger.Error("attempt to overwrite protected ace",
					"resource", res.URL(), "principal", ace.Principal.Key())
				err := preconditionErr(ConditionNoProtectedACEConflict,
					"principal %s has a protected entry", ace.Principal.Key())
				e.metrics.ObserveMergeFailure(err.Condition)
				return err
			}
			// Overriding an inherited entry is deliberately allowed:
			// inheritance is a private server mechanism that clients cannot
			// steer, so refusing the override would leave them stuck.
		}

		if !ace.Allow && sawGrant {
			logger.Error("attempt to set deny ace after grant ace",
				"resource", res.URL(), "principal", ace.Principal.Key())
			err := preconditionErr(ConditionDenyBeforeGrant,
				"deny entry for %s follows a grant entry", ace.Principal.Key())
			e.metrics.ObserveMergeFailure(err.Condition)
			return err
		}
		if ace.Allow {
			sawGrant = true
		}

		for _, priv := range ace.Privileges {
			if !supported.Contains(priv) {
				logger.Error("attempt to use unsupported privilege",
					"resource", res.URL(), "privilege", priv.String())
				err := preconditionErr(ConditionNotSupportedPrivilege,
					"privilege %s is not supported on this resource", priv)
				e.metrics.ObserveMergeFailure(err.Condition)
				return err
			}
		}

		if ace.Protected || ace.Inherited != "" {
			logger.Error("attempt to submit protected or inherited ace",
				"resource", res.URL(), "principal", ace.Principal.Key())
			err := preconditionErr(ConditionNoACEConflict,
				"protected and inherited entries are server-assigned")
			e.metrics.ObserveMergeFailure(err.Condition)
			return err
		}

		valid, verr := e.validPrincipal(ctx, ace.Principal)
		if verr != nil {
			return fmt.Errorf("validate principal %s: %w", ace.Principal.Key(), verr)
		}
		if !valid {
			logger.Error("attempt to use unrecognized principal",
				"resource", res.URL(), "principal", ace.Principal.Key())
			err := preconditionErr(ConditionRecognizedPrincipal,
				"principal %s is not recognized", ace.Principal.Key())
			e.metrics.ObserveMergeFailure(err.Condition)
			return err
		}
	}

	// Build the new stored ACL: walk the current entries replacing any
	// whose principal appears in the submission, keep surviving protected
	// non-inherited entries, drop the rest, then append the remaining
	// submitted entries.
	remaining := append([]ACE(nil), submitted.ACEs...)
	var merged []ACE

	for i := range current.ACEs {
		old := &current.ACEs[i]
		replaced := false
		for j := range remaining {
			if remaining[j].Principal.Same(old.Principal) {
				merged = append(merged, remaining[j])
				remaining = append(remaining[:j], remaining[j+1:]...)
				replaced = true
				break
			}
		}
		if !replaced && old.Protected && old.Inherited == "" {
			merged = append(merged, *old)
		}
	}
	merged = append(merged, remaining...)

	if err := e.SetACL(ctx, res, &ACL{ACEs: merged}); err != nil {
		return err
	}

	logger.Info("acl updated",
		"resource", res.URL(),
		"entries", len(merged),
		"actor", rctx.Actor.Key())
	return nil
}
