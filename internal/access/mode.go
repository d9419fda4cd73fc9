// Package access decides how a request may reach kid-owned rows.
//
// A parent acts in Standard mode: every statement is scoped by a family
// membership predicate that the database evaluates, so rows outside the
// parent's families are invisible. A kid acts in Privileged mode: there is no
// membership row for a kid, so every statement carries an explicit equality
// filter on the kid id instead.
package access

import (
	"fmt"
	"strconv"
)

// Mode is the data-access mode for a request. The only implementations are
// Standard and Privileged.
type Mode interface {
	// KidScope renders a predicate restricting column, which holds a kid id, to
	// kids this mode may touch.
	KidScope(column string) (string, []any)
	// KidRowScope restricts rows of the kids table itself.
	KidRowScope(idColumn, familyColumn string) (string, []any)
	// FamilyScope restricts column, which holds a family id.
	FamilyScope(column string) (string, []any)
	// Actor describes who is acting, for logs.
	Actor() string

	sealed()
}

// Standard is the parent mode, scoped by family membership
type Standard struct {
	UserID int64
}

// Privileged is the kid mode, filtered by the session's own kid id
type Privileged struct {
	KidID int64
}

const memberFamilies = "SELECT family_id FROM family_members WHERE user_id = ?"

func (m Standard) KidScope(column string) (string, []any) {
	return fmt.Sprintf("%s IN (SELECT k.id FROM kids k JOIN family_members fm ON fm.family_id = k.family_id WHERE fm.user_id = ?)", column),
		[]any{m.UserID}
}

func (m Standard) KidRowScope(_, familyColumn string) (string, []any) {
	return fmt.Sprintf("%s IN (%s)", familyColumn, memberFamilies), []any{m.UserID}
}

func (m Standard) FamilyScope(column string) (string, []any) {
	return fmt.Sprintf("%s IN (%s)", column, memberFamilies), []any{m.UserID}
}

func (m Standard) Actor() string {
	return "parent:" + strconv.FormatInt(m.UserID, 10)
}

func (Standard) sealed() {}

func (m Privileged) KidScope(column string) (string, []any) {
	return column + " = ?", []any{m.KidID}
}

func (m Privileged) KidRowScope(idColumn, _ string) (string, []any) {
	return idColumn + " = ?", []any{m.KidID}
}

func (m Privileged) FamilyScope(column string) (string, []any) {
	return column + " = (SELECT family_id FROM kids WHERE id = ?)", []any{m.KidID}
}

func (m Privileged) Actor() string {
	return "kid:" + strconv.FormatInt(m.KidID, 10)
}

func (Privileged) sealed() {}

// IsParent reports whether mode acts for a parent
func IsParent(mode Mode) bool {
	_, ok := mode.(Standard)
	return ok
}

// ParentID returns the acting parent's user id
func ParentID(mode Mode) (int64, bool) {
	s, ok := mode.(Standard)
	return s.UserID, ok
}
