package acl_test

import (
	"context"
	"testing"

	"github.com/perchdav/perch/pkg/dav/acl"
)

func TestMatchPrincipal_MetaPrincipals(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()
	cal := resolve(t, tree, "/cal")

	cases := []struct {
		name      string
		rctx      *acl.RequestContext
		principal acl.Principal
		want      bool
	}{
		{"all matches authenticated", asActor(alice), acl.All(), true},
		{"all matches anonymous", anonymous(), acl.All(), true},
		{"authenticated matches actor", asActor(alice), acl.Authenticated(), true},
		{"authenticated rejects anonymous", anonymous(), acl.Authenticated(), false},
		{"unauthenticated matches anonymous", anonymous(), acl.Unauthenticated(), true},
		{"unauthenticated rejects actor", asActor(alice), acl.Unauthenticated(), false},
	}
	for _, tc := range cases {
		got, err := engine.MatchPrincipal(ctx, tc.rctx, cal, tc.principal)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: match = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMatchPrincipal_Href(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()
	cal := resolve(t, tree, "/cal")

	got, err := engine.MatchPrincipal(ctx, asActor(alice), cal, acl.Href(alice))
	if err != nil {
		t.Fatal(err)
	}
	if !got {
		t.Error("actor must match its own principal url")
	}

	got, err = engine.MatchPrincipal(ctx, asActor(bob), cal, acl.Href(alice))
	if err != nil {
		t.Fatal(err)
	}
	if got {
		t.Error("bob must not match alice's principal url")
	}

	// Identity matchers never match the anonymous actor.
	got, err = engine.MatchPrincipal(ctx, anonymous(), cal, acl.Href(alice))
	if err != nil {
		t.Fatal(err)
	}
	if got {
		t.Error("anonymous actor must not match an href principal")
	}
}

func TestMatchPrincipal_GroupMembership(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()
	cal := resolve(t, tree, "/cal")

	// alice is a direct member of staff.
	got, err := engine.MatchPrincipal(ctx, asActor(alice), cal, acl.Href(staff))
	if err != nil {
		t.Fatal(err)
	}
	if !got {
		t.Error("direct group member must match the group principal")
	}

	// alice is a member of admin only through staff.
	got, err = engine.MatchPrincipal(ctx, asActor(alice), cal, acl.Href(admin))
	if err != nil {
		t.Fatal(err)
	}
	if !got {
		t.Error("transitive group member must match the group principal")
	}

	got, err = engine.MatchPrincipal(ctx, asActor(carol), cal, acl.Href(admin))
	if err != nil {
		t.Fatal(err)
	}
	if got {
		t.Error("non-member must not match the group principal")
	}
}

func TestMatchPrincipal_GroupCycle(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()
	cal := resolve(t, tree, "/cal")

	// staff -> admin -> staff: expansion must terminate and carol,
	// a member of neither, must not match.
	if err := tree.SetMembers(staff, alice, admin); err != nil {
		t.Fatal(err)
	}

	got, err := engine.MatchPrincipal(ctx, asActor(carol), cal, acl.Href(staff))
	if err != nil {
		t.Fatal(err)
	}
	if got {
		t.Error("cyclic group must not match a non-member")
	}

	got, err = engine.MatchPrincipal(ctx, asActor(alice), cal, acl.Href(admin))
	if err != nil {
		t.Fatal(err)
	}
	if !got {
		t.Error("membership through a cyclic group must still resolve")
	}
}

func TestMatchPrincipal_Self(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()

	// On alice's own principal resource, self matches alice only.
	alicePrincipal := resolve(t, tree, alice)

	got, err := engine.MatchPrincipal(ctx, asActor(alice), alicePrincipal, acl.Self())
	if err != nil {
		t.Fatal(err)
	}
	if !got {
		t.Error("self must match the principal's own resource")
	}

	got, err = engine.MatchPrincipal(ctx, asActor(bob), alicePrincipal, acl.Self())
	if err != nil {
		t.Fatal(err)
	}
	if got {
		t.Error("self on alice's resource must not match bob")
	}

	// Self on a group resource matches the group's members.
	staffPrincipal := resolve(t, tree, staff)
	got, err = engine.MatchPrincipal(ctx, asActor(alice), staffPrincipal, acl.Self())
	if err != nil {
		t.Fatal(err)
	}
	if !got {
		t.Error("self on a group must match a member")
	}
}

func TestMatchPrincipal_SelfOnNonPrincipalFailsClosed(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()
	cal := resolve(t, tree, "/cal")

	got, err := engine.MatchPrincipal(ctx, asActor(alice), cal, acl.Self())
	if err != nil {
		t.Fatal(err)
	}
	if got {
		t.Error("self on a non-principal resource must not match")
	}
}

func TestMatchPrincipal_PropertyFailsClosed(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()
	cal := resolve(t, tree, "/cal")

	got, err := engine.MatchPrincipal(ctx, asActor(alice), cal,
		acl.PropertyPrincipal("DAV:", "owner"))
	if err != nil {
		t.Fatal(err)
	}
	if got {
		t.Error("property principal must fail closed")
	}
}

func TestMatchPrincipal_UnresolvableHrefFailsClosed(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()
	cal := resolve(t, tree, "/cal")

	got, err := engine.MatchPrincipal(ctx, asActor(alice), cal,
		acl.Href("/principals/users/nobody"))
	if err != nil {
		t.Fatal(err)
	}
	if got {
		t.Error("unresolvable principal url must not match")
	}

	// A non-principal resource named as a principal also fails closed.
	got, err = engine.MatchPrincipal(ctx, asActor(alice), cal, acl.Href("/cal"))
	if err != nil {
		t.Fatal(err)
	}
	if got {
		t.Error("non-principal resource must not match as a group")
	}
}

func TestMatchPrincipal_MemoizedPerRequest(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()
	cal := resolve(t, tree, "/cal")
	rctx := asActor(alice)

	first, err := engine.MatchPrincipal(ctx, rctx, cal, acl.Href(staff))
	if err != nil {
		t.Fatal(err)
	}
	if !first {
		t.Fatal("expected staff membership")
	}

	// Membership changes mid-request are not observed: the cached result
	// holds for the lifetime of the request context.
	if err := tree.SetMembers(staff); err != nil {
		t.Fatal(err)
	}

	second, err := engine.MatchPrincipal(ctx, rctx, cal, acl.Href(staff))
	if err != nil {
		t.Fatal(err)
	}
	if !second {
		t.Error("cached match result must hold within one request")
	}

	// A fresh request context sees the new membership.
	fresh, err := engine.MatchPrincipal(ctx, asActor(alice), cal, acl.Href(staff))
	if err != nil {
		t.Fatal(err)
	}
	if fresh {
		t.Error("new request must observe the membership change")
	}
}
