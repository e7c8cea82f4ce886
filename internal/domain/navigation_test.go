package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNavigationIntent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		intent  NavigationIntent
		wantErr bool
	}{
		{"link", NavigationIntent{Target: "/catalog", Source: SourceLink}, false},
		{"history", NavigationIntent{Target: "/catalog", Source: SourceHistory}, false},
		{"programmatic push", NavigationIntent{Target: "/catalog", Source: SourceProgrammatic, Method: MethodPush}, false},
		{"programmatic replace", NavigationIntent{Target: "/catalog", Source: SourceProgrammatic, Method: MethodReplace}, false},
		{"programmatic without method", NavigationIntent{Target: "/catalog", Source: SourceProgrammatic}, true},
		{"empty target", NavigationIntent{Target: "  ", Source: SourceLink}, true},
		{"unknown source", NavigationIntent{Target: "/catalog", Source: "keyboard"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.intent.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidNavigation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestIsExternalTarget(t *testing.T) {
	external := []string{"http://example.com", "HTTPS://example.com/x", "//cdn.example.com/a.js", "mailto:sales@example.com", "tel:+15551234"}
	internal := []string{"/catalog", "catalog", "/onboarding", "#top", "?page=2"}

	for _, target := range external {
		assert.True(t, IsExternalTarget(target), target)
	}
	for _, target := range internal {
		assert.False(t, IsExternalTarget(target), target)
	}
}

func TestNavigationIntent_ResolvedTarget(t *testing.T) {
	tests := []struct {
		target  string
		current string
		want    string
	}{
		{"#documents", "/onboarding/kyc", "/onboarding/kyc#documents"},
		{"?step=2", "/onboarding/kyc", "/onboarding/kyc?step=2"},
		{"upload", "/onboarding/kyc", "/onboarding/upload"},
		{"../catalog", "/onboarding/kyc", "/catalog"},
		{"/orders", "/onboarding/kyc", "/orders"},
		{"https://example.com/help", "/onboarding/kyc", "https://example.com/help"},
		{"upload", "", "upload"},
	}

	for _, tt := range tests {
		t.Run(tt.target+" from "+tt.current, func(t *testing.T) {
			intent := NavigationIntent{Target: tt.target, CurrentPath: tt.current, Source: SourceLink}
			assert.Equal(t, tt.want, intent.ResolvedTarget())
		})
	}
}

func TestRedirectStateFor(t *testing.T) {
	assert.Equal(t, RedirectApproved, RedirectStateFor(GateDecision{Approved: true}))
	assert.Equal(t, RedirectBlocked, RedirectStateFor(GateDecision{Approved: false}))
}

func TestInvalidation_Validate(t *testing.T) {
	tests := []struct {
		name    string
		inv     Invalidation
		wantErr bool
	}{
		{"key", Invalidation{Kind: InvalidateByKey, Value: "sub:u1"}, false},
		{"user", Invalidation{Kind: InvalidateByUser, Value: "u1"}, false},
		{"blank value", Invalidation{Kind: InvalidateByKey, Value: "  "}, true},
		{"unknown kind", Invalidation{Kind: "all", Value: "u1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.inv.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInvalidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}
