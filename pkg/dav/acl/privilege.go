package acl

// Namespaces of the privileges this server understands.
const (
	DAVNamespace    = "DAV:"
	CalDAVNamespace = "urn:ietf:params:xml:ns:caldav"
)

// Privilege is a namespace-qualified capability name.
type Privilege struct {
	Namespace string `json:"namespace"`
	Local     string `json:"local"`
}

func (p Privilege) String() string {
	return "{" + p.Namespace + "}" + p.Local
}

// Privileges defined by RFC 3744 section 3.
var (
	PrivAll             = Privilege{DAVNamespace, "all"}
	PrivRead            = Privilege{DAVNamespace, "read"}
	PrivWrite           = Privilege{DAVNamespace, "write"}
	PrivWriteProperties = Privilege{DAVNamespace, "write-properties"}
	PrivWriteContent    = Privilege{DAVNamespace, "write-content"}
	PrivBind            = Privilege{DAVNamespace, "bind"}
	PrivUnbind          = Privilege{DAVNamespace, "unbind"}
	PrivUnlock          = Privilege{DAVNamespace, "unlock"}
	PrivReadACL         = Privilege{DAVNamespace, "read-acl"}
	PrivWriteACL        = Privilege{DAVNamespace, "write-acl"}
	PrivReadCUPS        = Privilege{DAVNamespace, "read-current-user-privilege-set"}
)

// Calendar privileges defined by RFC 4791 and RFC 6638.
var (
	PrivReadFreeBusy    = Privilege{CalDAVNamespace, "read-free-busy"}
	PrivScheduleDeliver = Privilege{CalDAVNamespace, "schedule-deliver"}
	PrivScheduleSend    = Privilege{CalDAVNamespace, "schedule-send"}
)

// SupportedPrivilege is a node of a supported-privilege-set tree. A node
// aggregates every privilege in its subtree.
type SupportedPrivilege struct {
	Privilege   Privilege
	Description string
	Children    []SupportedPrivilege
}

// PrivilegeSet is the privilege aggregation tree for one resource class,
// rooted at DAV:all.
type PrivilegeSet struct {
	Root SupportedPrivilege
}

// Contains reports whether p appears anywhere in the set.
func (s *PrivilegeSet) Contains(p Privilege) bool {
	return findNode(&s.Root, p) != nil
}

// IsAggregateOf reports whether agg aggregates sub in this set: sub
// appears strictly within agg's subtree. DAV:all aggregates everything.
func (s *PrivilegeSet) IsAggregateOf(agg, sub Privilege) bool {
	if agg == PrivAll {
		return true
	}
	node := findNode(&s.Root, agg)
	if node == nil {
		return false
	}
	for i := range node.Children {
		if findNode(&node.Children[i], sub) != nil {
			return true
		}
	}
	return false
}

// Expand returns p together with every privilege aggregated beneath it.
// A privilege not present in the set expands to itself.
func (s *PrivilegeSet) Expand(p Privilege) []Privilege {
	node := findNode(&s.Root, p)
	if node == nil {
		return []Privilege{p}
	}
	var out []Privilege
	collect(node, &out)
	return out
}

// Flatten returns every privilege in the set in pre-order.
func (s *PrivilegeSet) Flatten() []Privilege {
	var out []Privilege
	collect(&s.Root, &out)
	return out
}

func findNode(node *SupportedPrivilege, p Privilege) *SupportedPrivilege {
	if node.Privilege == p {
		return node
	}
	for i := range node.Children {
		if found := findNode(&node.Children[i], p); found != nil {
			return found
		}
	}
	return nil
}

func collect(node *SupportedPrivilege, out *[]Privilege) {
	*out = append(*out, node.Privilege)
	for i := range node.Children {
		collect(&node.Children[i], out)
	}
}

// PrivilegeClass selects the privilege graph variant for a resource.
type PrivilegeClass int

const (
	// ClassGeneric is the plain WebDAV privilege graph.
	ClassGeneric PrivilegeClass = iota

	// ClassCalendar extends the generic graph with read-free-busy for
	// calendar collections and objects.
	ClassCalendar

	// ClassScheduling extends the calendar graph with the scheduling
	// privileges of inbox and outbox collections.
	ClassScheduling
)

// PrivilegeSet returns the aggregation tree for the class.
func (c PrivilegeClass) PrivilegeSet() *PrivilegeSet {
	switch c {
	case ClassCalendar:
		return calendarPrivilegeSet
	case ClassScheduling:
		return schedulingPrivilegeSet
	default:
		return davPrivilegeSet
	}
}

// SupportedPrivileges returns the privilege graph governing a resource.
func SupportedPrivileges(res Resource) *PrivilegeSet {
	return res.PrivilegeClass().PrivilegeSet()
}

// davPrivilegeSet is one possible graph of the standard privileges
// documented in RFC 3744 section 3.
var davPrivilegeSet = &PrivilegeSet{
	Root: SupportedPrivilege{
		Privilege:   PrivAll,
		Description: "all privileges",
		Children: []SupportedPrivilege{
			{Privilege: PrivRead, Description: "read resource"},
			{
				Privilege:   PrivWrite,
				Description: "write resource",
				Children: []SupportedPrivilege{
					{Privilege: PrivWriteProperties, Description: "write resource properties"},
					{Privilege: PrivWriteContent, Description: "write resource content"},
					{Privilege: PrivBind, Description: "add child resource"},
					{Privilege: PrivUnbind, Description: "remove child resource"},
				},
			},
			{Privilege: PrivUnlock, Description: "unlock resource without ownership of lock"},
			{Privilege: PrivReadACL, Description: "read resource access control list"},
			{Privilege: PrivWriteACL, Description: "write resource access control list"},
			{Privilege: PrivReadCUPS, Description: "read privileges for current principal"},
		},
	},
}

// calendarPrivilegeSet grafts read-free-busy beneath read, so granting
// read implies free-busy visibility (RFC 4791 section 6.1.1).
var calendarPrivilegeSet = extendPrivilegeSet(davPrivilegeSet, func(node *SupportedPrivilege) {
	if node.Privilege == PrivRead {
		node.Children = append(node.Children, SupportedPrivilege{
			Privilege:   PrivReadFreeBusy,
			Description: "allow free busy report query",
		})
	}
})

// schedulingPrivilegeSet adds the RFC 6638 scheduling privileges directly
// under all, for inbox and outbox collections.
var schedulingPrivilegeSet = extendPrivilegeSet(calendarPrivilegeSet, func(node *SupportedPrivilege) {
	if node.Privilege == PrivAll {
		node.Children = append(node.Children,
			SupportedPrivilege{Privilege: PrivScheduleDeliver, Description: "deliver scheduling messages"},
			SupportedPrivilege{Privilege: PrivScheduleSend, Description: "send scheduling messages"},
		)
	}
})

// extendPrivilegeSet deep-copies a set and applies edit to every node.
func extendPrivilegeSet(base *PrivilegeSet, edit func(*SupportedPrivilege)) *PrivilegeSet {
	out := &PrivilegeSet{Root: copyNode(&base.Root)}
	applyEdit(&out.Root, edit)
	return out
}

func copyNode(node *SupportedPrivilege) SupportedPrivilege {
	out := *node
	out.Children = make([]SupportedPrivilege, len(node.Children))
	for i := range node.Children {
		out.Children[i] = copyNode(&node.Children[i])
	}
	return out
}

func applyEdit(node *SupportedPrivilege, edit func(*SupportedPrivilege)) {
	edit(node)
	for i := range node.Children {
		applyEdit(&node.Children[i], edit)
	}
}
