// Package linker associates self-registered parent accounts with
// staff-registered children.  A parent's claimed child matches a
// registered child when the trimmed names and the birth-date strings are
// equal.  Every function here is pure: inputs are never modified and the
// caller decides what to persist.
//
// Iteration follows slice order, which is insertion order in the stores,
// so "first match wins" is reproducible.
package linker

import (
	"strings"

	"github.com/iliyamo/daycare-center/internal/model"
)

// FindUnlinkedMatch returns the first child whose match key equals
// (trim(name), birthDate) and that has no parent yet.
func FindUnlinkedMatch(children []model.RegisteredChild, name, birthDate string) (model.RegisteredChild, bool) {
	for _, c := range children {
		if c.Linked() {
			continue
		}
		if c.Matches(name, birthDate) {
			return c, true
		}
	}
	return model.RegisteredChild{}, false
}

// Link records one parent assignment made by Reconcile.
type Link struct {
	ChildID   string
	AccountID string
	ClassID   string
}

// Reconcile fills the parent id of every unlinked child that a parent
// account's claimed child matches.  Children that already have a parent
// are copied unchanged.  An account receives at most one child: accounts
// that own a link before or during the pass are skipped, so duplicate
// claims resolve to the first child in order and the rest stay unlinked.
// The returned slice is a copy; links lists what changed, and an empty
// links means the output equals the input.
func Reconcile(accounts []model.Account, children []model.RegisteredChild) ([]model.RegisteredChild, []Link) {
	out := make([]model.RegisteredChild, len(children))
	copy(out, children)

	taken := make(map[string]bool, len(out))
	for _, c := range out {
		if c.Linked() {
			taken[*c.ParentID] = true
		}
	}

	var links []Link
	for i := range out {
		if out[i].Linked() {
			continue
		}
		for _, a := range accounts {
			if !a.IsParent() || !a.Child.HasMatchKey() || taken[a.ID] {
				continue
			}
			if !out[i].Matches(a.Child.Name, a.Child.BirthDate) {
				continue
			}
			id := a.ID
			out[i].ParentID = &id
			taken[a.ID] = true
			links = append(links, Link{ChildID: out[i].ID, AccountID: a.ID, ClassID: out[i].ClassID})
			break
		}
	}
	return out, links
}

// RegisterResult is the outcome of OnRegister.
type RegisterResult struct {
	ResolvedClassID string
	LinkedChildID   string // empty when nothing matched
}

// Matched reports whether a child was found.
func (r RegisterResult) Matched() bool { return r.LinkedChildID != "" }

// OnRegister is evaluated before a new account is stored.  For a parent
// whose claim carries a name and a birth date, a matching unlinked child
// supplies the class id, overriding the one the registrant typed.
func OnRegister(claim model.Account, children []model.RegisteredChild) RegisterResult {
	res := RegisterResult{}
	if claim.Child != nil {
		res.ResolvedClassID = claim.Child.ClassID
	}
	if !claim.IsParent() || !claim.Child.HasMatchKey() {
		return res
	}
	if c, ok := FindUnlinkedMatch(children, claim.Child.Name, claim.Child.BirthDate); ok {
		res.ResolvedClassID = c.ClassID
		res.LinkedChildID = c.ID
	}
	return res
}

// ProfileUpdate is the subset of an account a user may edit about
// themselves.  Nil fields are left unchanged.
type ProfileUpdate struct {
	Name  *string
	Phone *string
	Child *model.ClaimedChild
}

// ProfileResult is the outcome of OnProfileUpdate.
type ProfileResult struct {
	Updated       model.Account
	LinkedChildID string
}

// OnProfileUpdate merges updates into current.  A parent that is
// already linked keeps the class of its roster child whatever it
// reported.  A parent that is not linked yet and whose merged claim has a
// name and a birth date is linked to the first matching unlinked child.
func OnProfileUpdate(current model.Account, updates ProfileUpdate, children []model.RegisteredChild) ProfileResult {
	updated := current
	if current.Child != nil {
		cc := *current.Child
		updated.Child = &cc
	}
	if updates.Name != nil {
		updated.Name = strings.TrimSpace(*updates.Name)
	}
	if updates.Phone != nil {
		updated.Phone = *updates.Phone
	}
	if updates.Child != nil {
		cc := *updates.Child
		updated.Child = &cc
	}

	res := ProfileResult{Updated: updated}
	if !updated.IsParent() || updated.Child == nil {
		return res
	}
	if rc, ok := linkedChild(current.ID, children); ok {
		res.Updated.Child.ClassID = rc.ClassID
		return res
	}
	if !updated.Child.HasMatchKey() {
		return res
	}
	if c, ok := FindUnlinkedMatch(children, updated.Child.Name, updated.Child.BirthDate); ok {
		res.Updated.Child.ClassID = c.ClassID
		res.LinkedChildID = c.ID
	}
	return res
}

// ClassSyncs returns one Link for every linked child whose parent account
// reports a class other than the child's roster class.
func ClassSyncs(accounts []model.Account, children []model.RegisteredChild) []Link {
	byID := make(map[string]model.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	var out []Link
	for _, c := range children {
		if !c.Linked() {
			continue
		}
		a, ok := byID[*c.ParentID]
		if !ok || !a.IsParent() || a.Child == nil || a.Child.ClassID == c.ClassID {
			continue
		}
		out = append(out, Link{ChildID: c.ID, AccountID: a.ID, ClassID: c.ClassID})
	}
	return out
}

func linkedChild(accountID string, children []model.RegisteredChild) (model.RegisteredChild, bool) {
	for _, c := range children {
		if c.Linked() && *c.ParentID == accountID {
			return c, true
		}
	}
	return model.RegisteredChild{}, false
}
