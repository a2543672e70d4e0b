package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidTree, "duplicate node id: %s", "src/a.go")

	if err.Code != ErrCodeInvalidTree {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidTree)
	}

	if err.Message != "duplicate node id: src/a.go" {
		t.Errorf("Message = %v", err.Message)
	}

	expected := "INVALID_TREE: duplicate node id: src/a.go"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := Wrap(ErrCodeRepoOpen, cause, "failed to open repository")

	if err.Code != ErrCodeRepoOpen {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeRepoOpen)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	// Test Unwrap
	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	expected := "REPO_OPEN_FAILED: failed to open repository: permission denied"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{
			name: "matching code",
			err:  New(ErrCodeNodeNotFound, "no such node"),
			code: ErrCodeNodeNotFound,
			want: true,
		},
		{
			name: "different code",
			err:  New(ErrCodeNodeNotFound, "no such node"),
			code: ErrCodeInternal,
			want: false,
		},
		{
			name: "wrapped structured error",
			err:  Wrap(ErrCodeRepoScan, errors.New("io"), "scan failed"),
			code: ErrCodeRepoScan,
			want: true,
		},
		{
			name: "plain error",
			err:  errors.New("plain"),
			code: ErrCodeInternal,
			want: false,
		},
		{
			name: "nil cause unwrap",
			err:  New(ErrCodeInvalidFormat, "bad format"),
			code: ErrCodeInvalidFormat,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeInvalidFormat, "bad")); got != ErrCodeInvalidFormat {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeInvalidFormat)
	}

	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode() on plain error = %v, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	structured := New(ErrCodeInvalidConfig, "unknown key %q", "repel")
	if got := UserMessage(structured); got != `unknown key "repel"` {
		t.Errorf("UserMessage() = %v", got)
	}

	plain := errors.New("boom")
	if got := UserMessage(plain); got != "boom" {
		t.Errorf("UserMessage() on plain error = %v", got)
	}
}
