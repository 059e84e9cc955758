// Package scope computes which branches an actor may see in reports.
package scope

import (
	"strings"
)

// RoleClass is the closed classification of a free-text role label.
type RoleClass string

const (
	RoleOwner   RoleClass = "Owner"
	RoleManager RoleClass = "Manager"
	RoleOther   RoleClass = "Other"
)

// Classifier maps free-text role labels to a RoleClass by case-insensitive
// substring match against configurable hint lists. Role names are reference
// data, so matching is intentionally permissive rather than exact.
type Classifier struct {
	ownerHints   []string
	managerHints []string
}

// NewClassifier creates a classifier with the given hint lists. Nil lists
// fall back to the defaults.
func NewClassifier(ownerHints, managerHints []string) *Classifier {
	if ownerHints == nil {
		ownerHints = []string{"owner"}
	}
	if managerHints == nil {
		managerHints = []string{"manager"}
	}
	c := &Classifier{
		ownerHints:   make([]string, len(ownerHints)),
		managerHints: make([]string, len(managerHints)),
	}
	for i, h := range ownerHints {
		c.ownerHints[i] = strings.ToLower(h)
	}
	for i, h := range managerHints {
		c.managerHints[i] = strings.ToLower(h)
	}
	return c
}

// Classify returns the role class for a label. Owner hints win over manager
// hints when both match.
func (c *Classifier) Classify(label string) RoleClass {
	l := strings.ToLower(label)
	for _, h := range c.ownerHints {
		if strings.Contains(l, h) {
			return RoleOwner
		}
	}
	for _, h := range c.managerHints {
		if strings.Contains(l, h) {
			return RoleManager
		}
	}
	return RoleOther
}
