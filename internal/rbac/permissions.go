package rbac

import "strings"

// PermissionSet is the effective grant of an account. All marks the root role, which is
// granted everything without enumeration.
type PermissionSet struct {
	All    bool
	Values []string
}

// AllPermissions is the set held by administrators.
func AllPermissions() PermissionSet {
	return PermissionSet{All: true}
}

// NewPermissionSet builds a set from raw permission fields, splitting comma-joined values,
// trimming and removing duplicates while keeping first-seen order.
func NewPermissionSet(raw ...string) PermissionSet {
	return PermissionSet{Values: SplitPermissions(raw...)}
}

// Has reports whether p is granted.
func (s PermissionSet) Has(p string) bool {
	if s.All {
		return true
	}
	for _, v := range s.Values {
		if v == p {
			return true
		}
	}
	return false
}

// HasAll reports whether every required permission is granted. An empty requirement passes.
func (s PermissionSet) HasAll(required ...string) bool {
	if s.All || len(required) == 0 {
		return true
	}
	granted := make(map[string]struct{}, len(s.Values))
	for _, v := range s.Values {
		granted[v] = struct{}{}
	}
	for _, r := range required {
		if _, ok := granted[strings.TrimSpace(r)]; !ok {
			return false
		}
	}
	return true
}

// SplitPermissions flattens comma-joined permission fields into unique trimmed values.
func SplitPermissions(raw ...string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, field := range raw {
		for _, p := range strings.Split(field, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
