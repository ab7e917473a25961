// Package permissions decides which studio roles may perform which actions.
//
// The policy table is keyed by role, resource and action. Anything not listed is denied.
package permissions

import (
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/identity"
)

type Policy string

const (
	Allow  Policy = "allow"
	Own    Policy = "own"
	Locked Policy = "locked"
	Deny   Policy = "deny"
)

type Pair struct {
	Resource string
	Action   string
}

func (p Pair) String() string { return p.Resource + "." + p.Action }

type actions map[string]Policy

var table = map[identity.Role]map[string]actions{
	identity.RoleAdmin: {
		"sessions":     {"view": Allow, "create": Allow, "edit": Allow, "cancel": Allow, "complete": Allow, "delete": Allow},
		"transactions": {"view": Allow, "create": Allow, "edit": Allow, "delete": Allow},
		"clients":      {"view": Allow, "create": Allow, "edit": Allow, "delete": Allow},
		"artists":      {"view": Allow, "create": Allow, "edit": Allow, "delete": Allow},
		"inventory":    {"view": Allow, "edit": Allow, "adjust": Allow},
		"portfolio":    {"view": Allow, "create": Allow, "delete": Allow},
		"reports":      {"view": Allow, "export": Allow},
		"settings":     {"view": Allow, "edit": Allow},
	},
	identity.RoleArtist: {
		"sessions":     {"view": Allow, "create": Own, "edit": Own, "cancel": Own, "complete": Own, "delete": Deny},
		"transactions": {"view": Own, "create": Deny, "edit": Deny, "delete": Deny},
		"clients":      {"view": Allow, "create": Allow, "edit": Allow, "delete": Deny},
		"artists":      {"view": Allow, "create": Deny, "edit": Own, "delete": Deny},
		"inventory":    {"view": Allow, "edit": Deny, "adjust": Deny},
		"portfolio":    {"view": Allow, "create": Own, "delete": Own},
		"reports":      {"view": Own, "export": Deny},
		"settings":     {"view": Deny, "edit": Deny},
	},
	identity.RoleAssistant: {
		"sessions":     {"view": Allow, "create": Allow, "edit": Allow, "cancel": Locked, "complete": Allow, "delete": Locked},
		"transactions": {"view": Allow, "create": Allow, "edit": Locked, "delete": Locked},
		"clients":      {"view": Allow, "create": Allow, "edit": Allow, "delete": Locked},
		"artists":      {"view": Allow, "create": Deny, "edit": Deny, "delete": Deny},
		"inventory":    {"view": Allow, "edit": Allow, "adjust": Allow},
		"portfolio":    {"view": Allow, "create": Deny, "delete": Deny},
		"reports":      {"view": Locked, "export": Locked},
		"settings":     {"view": Deny, "edit": Deny},
	},
}

// assistantLocks gates assistant actions that are otherwise allowed behind the master code.
var assistantLocks = map[Pair]bool{
	{"sessions", "complete"}: true,
}

// RequiredPairs are the resource/action pairs the scheduling endpoints check.
var RequiredPairs = []Pair{
	{"sessions", "view"},
	{"sessions", "create"},
	{"sessions", "edit"},
	{"sessions", "cancel"},
	{"sessions", "complete"},
	{"settings", "edit"},
}

// PolicyFor returns Deny for unknown roles, resources or actions.
func PolicyFor(role identity.Role, resource, action string) Policy {
	byResource, ok := table[role]
	if !ok {
		return Deny
	}
	acts, ok := byResource[resource]
	if !ok {
		return Deny
	}
	p, ok := acts[action]
	if !ok {
		return Deny
	}
	return p
}

// NeedsCode reports whether an assistant must be elevated before performing the action.
func NeedsCode(resource, action string) bool {
	return PolicyFor(identity.RoleAssistant, resource, action) == Locked || assistantLocks[Pair{resource, action}]
}

// Validate fails when any role lacks an entry for one of pairs.
func Validate(pairs ...Pair) error {
	var missing []string
	for _, role := range []identity.Role{identity.RoleAdmin, identity.RoleArtist, identity.RoleAssistant} {
		for _, p := range pairs {
			if _, ok := table[role][p.Resource][p.Action]; !ok {
				missing = append(missing, string(role)+":"+p.String())
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("policy table missing entries: %s", strings.Join(missing, ", "))
	}
	return nil
}
