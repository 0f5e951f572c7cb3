package navigator

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newVerifier(factory *fakeFactory) *Verifier {
	return NewVerifier(factory, NewDetector(DefaultDetectorConfig()), nil)
}

func TestVerifier_Reachable(t *testing.T) {
	sess := &fakeSession{site: map[string]*fakePage{
		"https://eportal.incometax.gov.in": {
			title:   "e-Filing Home",
			content: "<html>e-Pay Tax</html>",
		},
	}}
	v := newVerifier(&fakeFactory{sess: sess})

	res := v.Verify(context.Background(), "https://eportal.incometax.gov.in")

	if !res.OK {
		t.Fatalf("OK = false, reason %q", res.Reason)
	}
	if !sess.closed {
		t.Error("session not closed")
	}
}

func TestVerifier_Failures(t *testing.T) {
	tests := []struct {
		name    string
		page    *fakePage
		wantSub string
	}{
		{"empty title", &fakePage{title: "   ", content: "<html>x</html>"}, "empty page title"},
		{"access denied", &fakePage{title: "Error", content: "<html>Access Denied</html>"}, "blocked"},
		{"captcha", &fakePage{title: "Check", content: "<html>solve this captcha</html>"}, "blocked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &fakeSession{site: map[string]*fakePage{"https://x.example": tt.page}}
			v := newVerifier(&fakeFactory{sess: sess})

			res := v.Verify(context.Background(), "https://x.example")

			if res.OK {
				t.Error("OK = true")
			}
			if !strings.Contains(res.Reason, tt.wantSub) {
				t.Errorf("Reason = %q, want %q", res.Reason, tt.wantSub)
			}
			if !sess.closed {
				t.Error("session not closed")
			}
		})
	}
}

func TestVerifier_NavigationError(t *testing.T) {
	sess := &fakeSession{openErr: errors.New("net::ERR_CONNECTION_REFUSED")}
	v := newVerifier(&fakeFactory{sess: sess})

	res := v.Verify(context.Background(), "https://down.example")

	if res.OK || !strings.Contains(res.Reason, "navigation failed") {
		t.Errorf("result = %+v", res)
	}
	if !sess.closed {
		t.Error("session not closed on navigation error")
	}
}

func TestVerifier_SessionError(t *testing.T) {
	v := newVerifier(&fakeFactory{err: errors.New("driver missing")})

	res := v.Verify(context.Background(), "https://x.example")

	if res.OK || !strings.Contains(res.Reason, "browser session") {
		t.Errorf("result = %+v", res)
	}
}
