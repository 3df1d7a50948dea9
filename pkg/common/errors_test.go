package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatchesSentinelByCode(t *testing.T) {
	err := NewError(StagePredict, "models/scaler.json", ErrCodeArtifactsUnavailable, "scaler missing", errors.New("no such file"))
	wrapped := fmt.Errorf("load: %w", err)

	if !errors.Is(wrapped, ErrArtifactsUnavailable) {
		t.Errorf("errors.Is(%v, ErrArtifactsUnavailable) = false, want true", wrapped)
	}
	if errors.Is(wrapped, ErrDecoding) {
		t.Errorf("errors.Is(%v, ErrDecoding) = true, want false", wrapped)
	}
	if got := CodeOf(wrapped); got != ErrCodeArtifactsUnavailable {
		t.Errorf("CodeOf() = %q, want %q", got, ErrCodeArtifactsUnavailable)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{NewError(StageExtract, "", ErrCodeExtraction, "empty signal", nil), "empty signal"},
		{NewError(StageCurate, "/a.wav", ErrCodeDecoding, "decode failed", nil), "/a.wav: decode failed"},
		{NewError(StageCurate, "/a.wav", ErrCodeDecoding, "decode failed", errors.New("EOF")), "/a.wav: decode failed: EOF"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
}
