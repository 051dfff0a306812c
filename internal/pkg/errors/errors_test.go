package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestAppErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			"without cause",
			New(CodeNotFound, "label pair (piano, guitar) not found"),
			"NOT_FOUND: label pair (piano, guitar) not found",
		},
		{
			"with cause",
			Wrap(CodeConfiguration, "reading description file", errors.New("no such file")),
			"CONFIGURATION_ERROR: reading description file: no such file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := Wrap(CodeInternal, "wrapped", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is() should find the wrapped cause")
	}
}

func TestCodeCheckers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found matches", NotFoundError("label vector"), IsNotFound, true},
		{"not found rejects other code", ConfigurationError("bad file"), IsNotFound, false},
		{"not found rejects plain error", errors.New("plain"), IsNotFound, false},
		{"configuration matches", ConfigurationError("bad file"), IsConfiguration, true},
		{"shape mismatch matches", ShapeMismatchError("3x3 vs 4x4"), IsShapeMismatch, true},
		{"degenerate matches", DegenerateInputError("zero tokens"), IsDegenerate, true},
		{"degenerate rejects other code", ValidationError("bad k"), IsDegenerate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.want {
				t.Errorf("check = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithDetail(t *testing.T) {
	err := NotFoundError("pair").WithDetail("pos", "piano").WithDetail("neg", "guitar")

	if err.Details["pos"] != "piano" || err.Details["neg"] != "guitar" {
		t.Errorf("Details = %v, want pos/neg entries", err.Details)
	}
	if !strings.Contains(err.Error(), "pair not found") {
		t.Errorf("Error() = %q, want it to mention the resource", err.Error())
	}
}
