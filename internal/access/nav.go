package access

import "github.com/stemsi/exam-portal/internal/model"

// NavEntry is one primary-navigation link.
type NavEntry struct {
	Path  string `json:"path"`
	Title string `json:"title"`
}

// Navigation returns the primary-navigation links visible to id: routes marked
// for navigation whose allowed roles contain the identity's role.
//
// The dashboard is hidden from every role except Admin even though the route
// itself admits all roles. This is a deliberate one-off exception and is not a
// rule about nav visibility in general.
func Navigation(routes []model.RouteDescriptor, id *model.Identity) []NavEntry {
	entries := []NavEntry{}
	if id == nil {
		return entries
	}
	var walk func([]model.RouteDescriptor)
	walk = func(rs []model.RouteDescriptor) {
		for _, r := range rs {
			if r.Nav && r.Roles.Has(id.Role) && !hiddenDashboard(r, id) {
				entries = append(entries, NavEntry{Path: r.Path, Title: r.Title})
			}
			if len(r.Children) > 0 {
				walk(r.Children)
			}
		}
	}
	walk(routes)
	return entries
}

func hiddenDashboard(r model.RouteDescriptor, id *model.Identity) bool {
	return r.Path == dashboardPath && id.Role != model.RoleAdmin
}
