package acl_test

import (
	"testing"

	"github.com/perchdav/perch/pkg/dav/acl"
)

func TestPrivilegeSet_Contains(t *testing.T) {
	set := acl.ClassGeneric.PrivilegeSet()

	for _, p := range []acl.Privilege{
		acl.PrivAll, acl.PrivRead, acl.PrivWrite,
		acl.PrivWriteProperties, acl.PrivWriteContent,
		acl.PrivBind, acl.PrivUnbind, acl.PrivUnlock,
		acl.PrivReadACL, acl.PrivWriteACL, acl.PrivReadCUPS,
	} {
		if !set.Contains(p) {
			t.Errorf("expected generic set to contain %s", p)
		}
	}

	if set.Contains(acl.PrivReadFreeBusy) {
		t.Error("generic set should not contain read-free-busy")
	}
	if set.Contains(acl.Privilege{Namespace: "DAV:", Local: "no-such"}) {
		t.Error("unknown privilege reported as supported")
	}
}

func TestPrivilegeSet_IsAggregateOf(t *testing.T) {
	set := acl.ClassGeneric.PrivilegeSet()

	cases := []struct {
		name string
		agg  acl.Privilege
		sub  acl.Privilege
		want bool
	}{
		{"all aggregates read", acl.PrivAll, acl.PrivRead, true},
		{"all aggregates bind", acl.PrivAll, acl.PrivBind, true},
		{"all aggregates unknown", acl.PrivAll, acl.Privilege{Namespace: "X:", Local: "y"}, true},
		{"write aggregates bind", acl.PrivWrite, acl.PrivBind, true},
		{"write aggregates write-content", acl.PrivWrite, acl.PrivWriteContent, true},
		{"read does not aggregate write", acl.PrivRead, acl.PrivWrite, false},
		{"privilege does not aggregate itself", acl.PrivWrite, acl.PrivWrite, false},
		{"bind does not aggregate write", acl.PrivBind, acl.PrivWrite, false},
	}
	for _, tc := range cases {
		if got := set.IsAggregateOf(tc.agg, tc.sub); got != tc.want {
			t.Errorf("%s: IsAggregateOf(%s, %s) = %v, want %v",
				tc.name, tc.agg, tc.sub, got, tc.want)
		}
	}
}

func TestPrivilegeSet_Expand(t *testing.T) {
	set := acl.ClassGeneric.PrivilegeSet()

	write := set.Expand(acl.PrivWrite)
	for _, want := range []acl.Privilege{
		acl.PrivWrite, acl.PrivWriteProperties, acl.PrivWriteContent,
		acl.PrivBind, acl.PrivUnbind,
	} {
		if !hasPrivilege(write, want) {
			t.Errorf("expanding write should include %s", want)
		}
	}
	if hasPrivilege(write, acl.PrivRead) {
		t.Error("expanding write should not include read")
	}

	// A leaf expands to itself.
	leaf := set.Expand(acl.PrivBind)
	if len(leaf) != 1 || leaf[0] != acl.PrivBind {
		t.Errorf("expanding bind = %v, want [bind]", leaf)
	}

	// A privilege absent from the set expands to itself.
	unknown := acl.Privilege{Namespace: "X:", Local: "y"}
	if got := set.Expand(unknown); len(got) != 1 || got[0] != unknown {
		t.Errorf("expanding unknown privilege = %v, want itself", got)
	}
}

func TestPrivilegeSet_CalendarVariant(t *testing.T) {
	set := acl.ClassCalendar.PrivilegeSet()

	if !set.Contains(acl.PrivReadFreeBusy) {
		t.Fatal("calendar set should contain read-free-busy")
	}
	// Free-busy hangs under read, so granting read implies it.
	if !set.IsAggregateOf(acl.PrivRead, acl.PrivReadFreeBusy) {
		t.Error("read should aggregate read-free-busy on calendar resources")
	}
	if set.Contains(acl.PrivScheduleDeliver) {
		t.Error("calendar set should not contain scheduling privileges")
	}

	// The base graph must not have been mutated by the extension.
	if acl.ClassGeneric.PrivilegeSet().Contains(acl.PrivReadFreeBusy) {
		t.Error("generic set gained read-free-busy")
	}
}

func TestPrivilegeSet_SchedulingVariant(t *testing.T) {
	set := acl.ClassScheduling.PrivilegeSet()

	for _, p := range []acl.Privilege{
		acl.PrivReadFreeBusy, acl.PrivScheduleDeliver, acl.PrivScheduleSend,
	} {
		if !set.Contains(p) {
			t.Errorf("scheduling set should contain %s", p)
		}
	}
	if !set.IsAggregateOf(acl.PrivAll, acl.PrivScheduleDeliver) {
		t.Error("all should aggregate schedule-deliver")
	}
	if set.IsAggregateOf(acl.PrivRead, acl.PrivScheduleDeliver) {
		t.Error("read should not aggregate schedule-deliver")
	}

	if acl.ClassCalendar.PrivilegeSet().Contains(acl.PrivScheduleSend) {
		t.Error("calendar set gained schedule-send")
	}
}

func TestPrivilegeSet_Flatten(t *testing.T) {
	flat := acl.ClassGeneric.PrivilegeSet().Flatten()

	if len(flat) != 11 {
		t.Fatalf("generic set has %d privileges, want 11", len(flat))
	}
	if flat[0] != acl.PrivAll {
		t.Errorf("pre-order flatten should start at all, got %s", flat[0])
	}
}
