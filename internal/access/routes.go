package access

import "github.com/stemsi/exam-portal/internal/model"

const (
	dashboardPath  = "/dashboard"
	catchAllSymbol = "*"

	// NotFoundTitle is the title of the catch-all screen.
	NotFoundTitle = "Not Found"
)

var (
	everyone     = model.RoleSet{model.RoleAdmin, model.RoleTeacher, model.RoleStudent}
	adminOnly    = model.RoleSet{model.RoleAdmin}
	adminTeacher = model.RoleSet{model.RoleAdmin, model.RoleTeacher}
	studentOnly  = model.RoleSet{model.RoleStudent}
)

// Routes is the static screen table. It is built once and never mutated.
var Routes = []model.RouteDescriptor{
	{Path: LoginPath, Title: "Login", Public: true, Restricted: everyone, RestrictedRedirect: HomePath},
	{Path: UnauthorizedPath, Title: "Unauthorized", Public: true},
	{
		Path:   HomePath,
		Roles:  everyone,
		Layout: true,
		Children: []model.RouteDescriptor{
			{Path: HomePath, Title: "Home", Roles: everyone},
			{Path: dashboardPath, Title: "Dashboard", Roles: everyone, Nav: true},
			{Path: "/users", Title: "Users", Roles: adminOnly, Nav: true},
			{Path: "/subjects", Title: "Subjects", Roles: adminOnly, Nav: true},
			{Path: "/classes", Title: "Classes", Roles: adminTeacher, Nav: true},
			{Path: "/class/:id", Title: "Class", Roles: everyone},
			{Path: "/question-banks", Title: "Question Banks", Roles: adminOnly, Nav: true},
			{Path: "/questions", Title: "Questions", Roles: adminTeacher, Nav: true},
			{Path: "/exams", Title: "Exams", Roles: everyone, Nav: true},
			{Path: "/exam/:examId", Title: "Exam Detail", Roles: everyone},
			{Path: "/exam/take/:examId", Title: "Take Exam", Roles: studentOnly},
			{Path: "/exam/result/:examId", Title: "Exam Result", Roles: studentOnly},
			{Path: "/profile", Title: "Profile", Roles: everyone, Nav: true},
		},
	},
	{Path: catchAllSymbol, Title: NotFoundTitle, Public: true},
}

// Resolution is the matched screen for a path and the gate decision for it.
type Resolution struct {
	Route    model.RouteDescriptor `json:"route"`
	Params   map[string]string     `json:"params,omitempty"`
	Decision Decision              `json:"decision"`
}

// Resolve matches path against the route table and gates it for id. Layout
// routes gate their own roles before the matched child's.
func Resolve(routes []model.RouteDescriptor, path string, id *model.Identity) Resolution {
	for _, r := range routes {
		if r.Layout {
			for _, child := range r.Children {
				params, ok := Match(child.Path, path)
				if !ok {
					continue
				}
				d := gate(r, id)
				if d.IsRender() {
					d = gate(child, id)
				}
				return Resolution{Route: child, Params: params, Decision: d}
			}
			continue
		}
		if params, ok := Match(r.Path, path); ok {
			return Resolution{Route: r, Params: params, Decision: gate(r, id)}
		}
	}
	return Resolution{
		Route:    model.RouteDescriptor{Path: catchAllSymbol, Title: NotFoundTitle, Public: true},
		Decision: Render,
	}
}

func gate(r model.RouteDescriptor, id *model.Identity) Decision {
	if len(r.Restricted) > 0 {
		if d := RestrictedRedirect(id, r.Restricted, r.RestrictedRedirect); !d.IsRender() {
			return d
		}
	}
	if r.Public {
		return Render
	}
	return Decide(id, r.Roles)
}
