// Package notify carries toast notifications and navigation instructions from
// server-side screens back to the browser shell.
package notify

// Level is the severity of a toast notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a non-blocking toast with a title and description.
type Notification struct {
	Level       Level  `json:"level"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Notifier delivers toasts. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// NavigationKind is how the shell should move.
type NavigationKind string

const (
	NavigateReplace NavigationKind = "replace"
	NavigatePush    NavigationKind = "push"
	NavigateBack    NavigationKind = "back"
)

// Navigation is an instruction for the shell's history.
type Navigation struct {
	Kind NavigationKind `json:"kind"`
	Path string         `json:"path,omitempty"`
}

// Navigator moves the shell. Implementations must not block.
type Navigator interface {
	Replace(path string)
	Push(path string)
	Back()
}
