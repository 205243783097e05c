package acl_test

import (
	"context"
	"errors"
	"testing"

	"github.com/perchdav/perch/pkg/dav/acl"
)

// requireDenied asserts err is an access denial and returns it.
func requireDenied(t *testing.T, err error) *acl.AccessDeniedError {
	t.Helper()
	var denied *acl.AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected access denial, got %v", err)
	}
	return denied
}

func TestCheckPrivileges_RootDefaultGrantsRead(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()
	cal := resolve(t, tree, "/cal")

	if err := engine.CheckPrivileges(ctx, anonymous(), cal, []acl.Privilege{acl.PrivRead}, false); err != nil {
		t.Errorf("anonymous read should pass under the root default: %v", err)
	}

	err := engine.CheckPrivileges(ctx, anonymous(), cal, []acl.Privilege{acl.PrivWrite}, false)
	denied := requireDenied(t, err)
	if len(denied.Denials) != 1 || denied.Denials[0].URL != "/cal" {
		t.Errorf("denials = %+v, want one on /cal", denied.Denials)
	}
	if !hasPrivilege(denied.Denials[0].Privileges, acl.PrivWrite) {
		t.Error("denial must name the write privilege")
	}
}

func TestCheckPrivileges_FirstMatchWins(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()
	cal := resolve(t, tree, "/cal")

	// Deny precedes grant: the deny decides.
	storeACL(t, engine, cal, &acl.ACL{ACEs: []acl.ACE{
		deny(acl.Href(alice), acl.PrivWrite),
		grant(acl.Href(alice), acl.PrivWrite),
	}})
	err := engine.CheckPrivileges(ctx, asActor(alice), cal, []acl.Privilege{acl.PrivWrite}, false)
	requireDenied(t, err)

	// Grant precedes deny: the grant decides.
	storeACL(t, engine, cal, &acl.ACL{ACEs: []acl.ACE{
		grant(acl.Href(alice), acl.PrivWrite),
		deny(acl.Href(alice), acl.PrivWrite),
	}})
	if err := engine.CheckPrivileges(ctx, asActor(alice), cal, []acl.Privilege{acl.PrivWrite}, false); err != nil {
		t.Errorf("grant preceding deny should pass: %v", err)
	}
}

func TestCheckPrivileges_AggregateSatisfiesLeaf(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()
	cal := resolve(t, tree, "/cal")

	storeACL(t, engine, cal, &acl.ACL{ACEs: []acl.ACE{
		grant(acl.Href(alice), acl.PrivAll),
	}})

	requested := []acl.Privilege{acl.PrivBind, acl.PrivWriteACL, acl.PrivRead}
	if err := engine.CheckPrivileges(ctx, asActor(alice), cal, requested, false); err != nil {
		t.Errorf("all should satisfy any leaf privilege: %v", err)
	}

	// A grant of write covers its children but not read.
	storeACL(t, engine, cal, &acl.ACL{ACEs: []acl.ACE{
		grant(acl.Href(alice), acl.PrivWrite),
	}})
	if err := engine.CheckPrivileges(ctx, asActor(alice), cal, []acl.Privilege{acl.PrivBind}, false); err != nil {
		t.Errorf("write should satisfy bind: %v", err)
	}
	err := engine.CheckPrivileges(ctx, asActor(alice), cal, []acl.Privilege{acl.PrivReadACL}, false)
	requireDenied(t, err)
}

func TestCheckPrivileges_Invert(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()
	cal := resolve(t, tree, "/cal")

	// Everyone but alice may write.
	storeACL(t, engine, cal, &acl.ACL{ACEs: []acl.ACE{
		{Principal: acl.Href(alice), Invert: true, Privileges: []acl.Privilege{acl.PrivWrite}, Allow: true},
	}})

	if err := engine.CheckPrivileges(ctx, asActor(bob), cal, []acl.Privilege{acl.PrivWrite}, false); err != nil {
		t.Errorf("inverted grant should cover bob: %v", err)
	}
	err := engine.CheckPrivileges(ctx, asActor(alice), cal, []acl.Privilege{acl.PrivWrite}, false)
	requireDenied(t, err)
}

func TestCheckPrivileges_UnmatchedIsDenied(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()
	cal := resolve(t, tree, "/cal")

	// An ACL that never mentions unlock: the privilege is implicitly denied
	// even for a principal holding broad grants elsewhere in the list.
	storeACL(t, engine, cal, &acl.ACL{ACEs: []acl.ACE{
		grant(acl.Href(alice), acl.PrivRead),
	}})

	err := engine.CheckPrivileges(ctx, asActor(alice), cal, []acl.Privilege{acl.PrivUnlock}, false)
	denied := requireDenied(t, err)
	if !hasPrivilege(denied.Denials[0].Privileges, acl.PrivUnlock) {
		t.Error("implicit denial must name the unmatched privilege")
	}
}

func TestCheckPrivileges_GroupGrant(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()
	cal := resolve(t, tree, "/cal")

	storeACL(t, engine, cal, &acl.ACL{ACEs: []acl.ACE{
		grant(acl.Href(staff), acl.PrivWrite),
	}})

	if err := engine.CheckPrivileges(ctx, asActor(alice), cal, []acl.Privilege{acl.PrivWrite}, false); err != nil {
		t.Errorf("group member should hold the group's grant: %v", err)
	}
	err := engine.CheckPrivileges(ctx, asActor(carol), cal, []acl.Privilege{acl.PrivWrite}, false)
	requireDenied(t, err)
}

func TestCheckPrivileges_RecursiveCollectsAllDenials(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()
	cal := resolve(t, tree, "/cal")
	event := resolve(t, tree, "/cal/event.ics")

	// alice may write the collection but a deny on the child blocks it
	// there. A recursive check must report the child, and only the child.
	storeACL(t, engine, cal, &acl.ACL{ACEs: []acl.ACE{
		{Principal: acl.Href(alice), Privileges: []acl.Privilege{acl.PrivWrite}, Allow: true, Inheritable: true},
	}})
	storeACL(t, engine, event, &acl.ACL{ACEs: []acl.ACE{
		deny(acl.Href(alice), acl.PrivWrite),
	}})

	err := engine.CheckPrivileges(ctx, asActor(alice), cal, []acl.Privilege{acl.PrivWrite}, true)
	denied := requireDenied(t, err)
	if len(denied.Denials) != 1 {
		t.Fatalf("got %d denials, want 1", len(denied.Denials))
	}
	if denied.Denials[0].URL != "/cal/event.ics" {
		t.Errorf("denial on %s, want /cal/event.ics", denied.Denials[0].URL)
	}
}

func TestCheckPrivileges_RecursiveDeepInheritance(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()

	// Two collection levels below /cal: the inherited entries each level
	// hands its children must carry the grant all the way down, and the
	// deny stored on the deepest object must still win there.
	if err := tree.AddCollection("/cal/sub", acl.ClassCalendar); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddResource("/cal/sub/deep.ics", acl.ClassCalendar); err != nil {
		t.Fatal(err)
	}

	cal := resolve(t, tree, "/cal")
	storeACL(t, engine, cal, &acl.ACL{ACEs: []acl.ACE{
		{Principal: acl.Href(alice), Privileges: []acl.Privilege{acl.PrivWrite}, Allow: true, Inheritable: true},
	}})
	storeACL(t, engine, resolve(t, tree, "/cal/sub/deep.ics"), &acl.ACL{ACEs: []acl.ACE{
		deny(acl.Href(alice), acl.PrivWrite),
	}})

	err := engine.CheckPrivileges(ctx, asActor(alice), cal, []acl.Privilege{acl.PrivWrite}, true)
	denied := requireDenied(t, err)
	if len(denied.Denials) != 1 || denied.Denials[0].URL != "/cal/sub/deep.ics" {
		t.Fatalf("denials = %+v, want only /cal/sub/deep.ics", denied.Denials)
	}

	// Each resource in the subtree must agree with its own standalone walk.
	for _, url := range []string{"/cal", "/cal/sub", "/cal/event.ics"} {
		if err := engine.CheckPrivileges(ctx, asActor(alice), resolve(t, tree, url),
			[]acl.Privilege{acl.PrivWrite}, false); err != nil {
			t.Errorf("standalone check on %s should pass: %v", url, err)
		}
	}
}

func TestCheckPrivileges_RecursiveDisabledSubtree(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()

	if err := tree.AddCollection("/cal/sub", acl.ClassCalendar); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddResource("/cal/sub/deep.ics", acl.ClassCalendar); err != nil {
		t.Fatal(err)
	}
	if err := tree.SetAccessDisabled("/cal/sub", true); err != nil {
		t.Fatal(err)
	}

	cal := resolve(t, tree, "/cal")
	storeACL(t, engine, cal, &acl.ACL{ACEs: []acl.ACE{
		{Principal: acl.Href(alice), Privileges: []acl.Privilege{acl.PrivWrite}, Allow: true, Inheritable: true},
	}})

	// The disabled collection and everything below it is denied; the
	// sibling object under the enabled parent still passes.
	err := engine.CheckPrivileges(ctx, asActor(alice), cal, []acl.Privilege{acl.PrivWrite}, true)
	denied := requireDenied(t, err)

	deniedURLs := make(map[string]bool)
	for _, d := range denied.Denials {
		deniedURLs[d.URL] = true
	}
	if !deniedURLs["/cal/sub"] || !deniedURLs["/cal/sub/deep.ics"] {
		t.Errorf("denials = %+v, want the disabled subtree", denied.Denials)
	}
	if deniedURLs["/cal/event.ics"] || deniedURLs["/cal"] {
		t.Errorf("denials = %+v, must not cover the enabled resources", denied.Denials)
	}
}

func TestCheckPrivileges_DisabledDeniesEverything(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()

	if err := tree.SetAccessDisabled("/cal", true); err != nil {
		t.Fatal(err)
	}
	cal := resolve(t, tree, "/cal")

	requested := []acl.Privilege{acl.PrivRead, acl.PrivWrite}
	err := engine.CheckPrivileges(ctx, asActor(alice), cal, requested, false)
	denied := requireDenied(t, err)
	if len(denied.Denials[0].Privileges) != 2 {
		t.Errorf("disabled resource must deny every requested privilege, got %v",
			denied.Denials[0].Privileges)
	}
}

func TestCheckPrivilegesFast_MatchesWalk(t *testing.T) {
	tree := newTree(t)
	engine := newEngine(tree)
	ctx := context.Background()
	cal := resolve(t, tree, "/cal")
	event := resolve(t, tree, "/cal/event.ics")

	storeACL(t, engine, cal, &acl.ACL{ACEs: []acl.ACE{
		{Principal: acl.Href(alice), Privileges: []acl.Privilege{acl.PrivWrite}, Allow: true, Inheritable: true},
	}})

	precomputed, disabled, err := engine.InheritedACEsForChildren(ctx, cal)
	if err != nil || disabled {
		t.Fatalf("precompute: disabled=%v err=%v", disabled, err)
	}

	fast := engine.CheckPrivilegesFast(ctx, asActor(alice), event, []acl.Privilege{acl.PrivWrite}, precomputed)
	slow := engine.CheckPrivileges(ctx, asActor(alice), event, []acl.Privilege{acl.PrivWrite}, false)
	if (fast == nil) != (slow == nil) {
		t.Errorf("fast path disagrees with walk: fast=%v slow=%v", fast, slow)
	}
	if fast != nil {
		t.Errorf("alice should inherit write on the event: %v", fast)
	}
}
