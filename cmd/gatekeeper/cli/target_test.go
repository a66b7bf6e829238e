package cli

import (
	"bytes"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTargetCheckAccepts(t *testing.T) {
	out, err := runCLI(t, "target", "check", "Example.com/login")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "OK https://example.com/login") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestTargetCheckRejectsInternal(t *testing.T) {
	_, err := runCLI(t, "target", "check", "http://169.254.169.254/latest/meta-data")
	if err == nil {
		t.Fatalf("expected rejection")
	}
	if !strings.Contains(err.Error(), "Internal URLs are not allowed") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestKeyCreateRequiresEmail(t *testing.T) {
	_, err := runCLI(t, "key", "create", "--name", "ci")
	if err == nil || !strings.Contains(err.Error(), "email") {
		t.Fatalf("expected missing email error, got %v", err)
	}
}

func TestUsagePruneRejectsZeroDays(t *testing.T) {
	_, err := runCLI(t, "usage", "prune", "--older-than-days", "0")
	if err == nil || !strings.Contains(err.Error(), "at least 1") {
		t.Fatalf("expected validation error, got %v", err)
	}
}
