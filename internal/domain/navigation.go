package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// NavigationSource is the entry point a navigation attempt came from.
type NavigationSource string

const (
	SourceLink         NavigationSource = "link"
	SourceProgrammatic NavigationSource = "programmatic"
	SourceHistory      NavigationSource = "history"
)

// NavigationMethod is the router primitive used by a programmatic navigation.
type NavigationMethod string

const (
	MethodPush    NavigationMethod = "push"
	MethodReplace NavigationMethod = "replace"
)

// NavigationAction tells the caller what to do with the attempted navigation.
type NavigationAction string

const (
	// ActionProceed lets the navigation happen.
	ActionProceed NavigationAction = "proceed"
	// ActionCancel prevents the default click behavior and stops propagation.
	ActionCancel NavigationAction = "cancel"
	// ActionRestore vetoes a back/forward by replacing the URL with RestorePath
	// without triggering a route change.
	ActionRestore NavigationAction = "restore"
	// ActionNoop swallows a programmatic push/replace.
	ActionNoop NavigationAction = "noop"
)

// NavigationIntent is a transient request to move to Target.
type NavigationIntent struct {
	Target      string
	CurrentPath string
	Source      NavigationSource
	Method      NavigationMethod
}

// Validate checks the intent is well formed.
func (i NavigationIntent) Validate() error {
	if strings.TrimSpace(i.Target) == "" {
		return fmt.Errorf("%w: target is required", ErrInvalidNavigation)
	}
	switch i.Source {
	case SourceLink, SourceHistory:
	case SourceProgrammatic:
		if i.Method != MethodPush && i.Method != MethodReplace {
			return fmt.Errorf("%w: unknown method %q", ErrInvalidNavigation, i.Method)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidNavigation, i.Source)
	}
	return nil
}

// ResolvedTarget returns Target resolved against CurrentPath the way a
// browser resolves a link on that page, so "#documents", "?step=2" and
// "upload" stay relative to the current route. External targets, and
// targets on an intent without a CurrentPath, are returned unchanged.
func (i NavigationIntent) ResolvedTarget() string {
	if i.CurrentPath == "" || IsExternalTarget(i.Target) {
		return i.Target
	}
	base, err := url.Parse(strings.TrimSpace(i.CurrentPath))
	if err != nil {
		return i.Target
	}
	ref, err := url.Parse(strings.TrimSpace(i.Target))
	if err != nil {
		return i.Target
	}
	if !strings.HasPrefix(base.Path, "/") {
		base.Path = "/" + base.Path
	}
	return base.ResolveReference(ref).String()
}

// NavigationOutcome is the gatekeeper's answer to a NavigationIntent.
type NavigationOutcome struct {
	Allowed     bool
	Action      NavigationAction
	RestorePath string
	Decision    GateDecision
}

// IsExternalTarget reports whether a link target leaves the application:
// absolute http(s) URLs, protocol-relative URLs, mailto: and tel: links.
func IsExternalTarget(target string) bool {
	t := strings.ToLower(strings.TrimSpace(target))
	for _, prefix := range []string{"http://", "https://", "//", "mailto:", "tel:"} {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}
