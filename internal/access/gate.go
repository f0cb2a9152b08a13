// Package access decides which portal screens an identity may open.
package access

import "github.com/stemsi/exam-portal/internal/model"

const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
	HomePath         = "/"
)

// Outcome is what the shell should do with a navigation target.
type Outcome string

const (
	OutcomeRender   Outcome = "render"
	OutcomeRedirect Outcome = "redirect"
)

// Decision is the result of gating one navigation target.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Path    string  `json:"path,omitempty"`
	// Replace means the redirect must replace the history entry so back
	// navigation does not return to the refused screen.
	Replace bool `json:"replace,omitempty"`
}

// Render is the decision to show the requested content.
var Render = Decision{Outcome: OutcomeRender}

func redirect(path string) Decision {
	return Decision{Outcome: OutcomeRedirect, Path: path, Replace: true}
}

// IsRender reports whether the requested content may be shown.
func (d Decision) IsRender() bool { return d.Outcome == OutcomeRender }

// Decide gates a protected target. A nil identity goes to the login page, an
// identity whose role is not allowed goes to the unauthorized page.
func Decide(id *model.Identity, allowed model.RoleSet) Decision {
	if id == nil {
		return redirect(LoginPath)
	}
	if !allowed.Has(id.Role) {
		return redirect(UnauthorizedPath)
	}
	return Render
}

// RestrictedRedirect is the inverse rule: identities whose role is in
// restricted are sent to alt, everyone else (including anonymous visitors)
// renders the content unchanged.
func RestrictedRedirect(id *model.Identity, restricted model.RoleSet, alt string) Decision {
	if id != nil && restricted.Has(id.Role) {
		return redirect(alt)
	}
	return Render
}
