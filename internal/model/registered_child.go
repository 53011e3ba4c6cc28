package model

import "strings"

// RegisteredChild is a roster entry created by staff independently of
// any parent account.  ParentID is nil until the linker associates the
// child with a parent account; once set it is only removed by deleting
// the child.
//
// Fields:
//  ID        – random unique identifier.
//  Name      – child's name as entered by staff.
//  BirthDate – birth date string, compared verbatim.
//  ClassID   – class the child is enrolled in.
//  ParentID  – id of the linked parent account (nullable).
type RegisteredChild struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	BirthDate string  `json:"birthDate"`
	ClassID   string  `json:"classId"`
	ParentID  *string `json:"parentId,omitempty"`
}

// Linked reports whether the child already has a parent.
func (c RegisteredChild) Linked() bool { return c.ParentID != nil && *c.ParentID != "" }

// Matches reports whether the child's match key equals (name, birthDate).
// Names are trimmed on both sides; birth dates must be equal strings.
func (c RegisteredChild) Matches(name, birthDate string) bool {
	return strings.TrimSpace(c.Name) == strings.TrimSpace(name) && c.BirthDate == birthDate
}

// RegisteredChildPatch carries the optional fields of a staff update.
// ParentID can be set by staff; an empty string clears it.
type RegisteredChildPatch struct {
	Name      *string `json:"name,omitempty"`
	BirthDate *string `json:"birthDate,omitempty"`
	ClassID   *string `json:"classId,omitempty"`
	ParentID  *string `json:"parentId,omitempty"`
}
