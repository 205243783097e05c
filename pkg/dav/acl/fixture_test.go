package acl_test

import (
	"context"
	"testing"

	"github.com/perchdav/perch/pkg/dav/acl"
	"github.com/perchdav/perch/pkg/storage/memory"
)

// Principal URLs used across the tests.
const (
	alice = "/principals/users/alice"
	bob   = "/principals/users/bob"
	carol = "/principals/users/carol"
	staff = "/principals/groups/staff"
	admin = "/principals/groups/admin"
)

// newTree builds the standard test hierarchy:
//
//	/
//	/cal              calendar collection
//	/cal/event.ics    calendar object
//	/inbox            scheduling collection
//	/principals/...   alice, bob, carol; staff contains alice,
//	                  admin contains staff (so carol is not a member,
//	                  alice is transitively a member of admin)
func newTree(t *testing.T) *memory.Tree {
	t.Helper()
	tree := memory.NewTree()

	adds := []error{
		tree.AddCollection("/cal", acl.ClassCalendar),
		tree.AddResource("/cal/event.ics", acl.ClassCalendar),
		tree.AddCollection("/inbox", acl.ClassScheduling),
		tree.AddCollection("/principals", acl.ClassGeneric),
		tree.AddCollection("/principals/users", acl.ClassGeneric),
		tree.AddCollection("/principals/groups", acl.ClassGeneric),
		tree.AddPrincipal(alice),
		tree.AddPrincipal(bob),
		tree.AddPrincipal(carol),
		tree.AddPrincipal(staff, alice),
		tree.AddPrincipal(admin, staff),
	}
	for _, err := range adds {
		if err != nil {
			t.Fatalf("build tree: %v", err)
		}
	}
	return tree
}

func newEngine(tree *memory.Tree) *acl.Engine {
	return acl.NewEngine(tree, nil)
}

func resolve(t *testing.T, tree *memory.Tree, url string) acl.Resource {
	t.Helper()
	res, err := tree.Resolve(context.Background(), url)
	if err != nil {
		t.Fatalf("resolve %s: %v", url, err)
	}
	if res == nil {
		t.Fatalf("resolve %s: not found", url)
	}
	return res
}

func storeACL(t *testing.T, engine *acl.Engine, res acl.Resource, a *acl.ACL) {
	t.Helper()
	if err := engine.SetACL(context.Background(), res, a); err != nil {
		t.Fatalf("store acl on %s: %v", res.URL(), err)
	}
}

func asActor(href string) *acl.RequestContext {
	return acl.NewRequestContext(acl.Actor{Href: href})
}

func anonymous() *acl.RequestContext {
	return acl.NewRequestContext(acl.AnonymousActor)
}

// grant builds an allow ACE for a principal.
func grant(p acl.Principal, privs ...acl.Privilege) acl.ACE {
	return acl.ACE{Principal: p, Privileges: privs, Allow: true}
}

// deny builds a deny ACE for a principal.
func deny(p acl.Principal, privs ...acl.Privilege) acl.ACE {
	return acl.ACE{Principal: p, Privileges: privs}
}

func hasPrivilege(privs []acl.Privilege, p acl.Privilege) bool {
	for _, candidate := range privs {
		if candidate == p {
			return true
		}
	}
	return false
}
