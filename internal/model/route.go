package model

// RouteDescriptor is one entry of the static screen table.
type RouteDescriptor struct {
	Path     string            `json:"path"`
	Title    string            `json:"title,omitempty"`
	Roles    RoleSet           `json:"roles,omitempty"`
	Public   bool              `json:"public,omitempty"`
	Nav      bool              `json:"nav,omitempty"`
	Layout   bool              `json:"layout,omitempty"`
	Children []RouteDescriptor `json:"children,omitempty"`
	// Restricted roles are sent to RestrictedRedirect instead of the screen.
	Restricted         RoleSet `json:"-"`
	RestrictedRedirect string  `json:"-"`
}
