package common

import "errors"

func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Error represents a pipeline failure tied to one stage and, usually, one file
type Error struct {
	Stage   Stage  `json:"stage"`
	Path    string `json:"path,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by code so errors.Is works across wrapping
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code != "" && t.Code == e.Code
	}
	return false
}

// Stage names a pipeline step
type Stage string

const (
	StageCurate  Stage = "curate"
	StageExtract Stage = "extract"
	StageTrain   Stage = "train"
	StagePredict Stage = "predict"
)

// Error codes
const (
	ErrCodeDecoding             = "DECODE_FAILED"
	ErrCodeExtraction           = "EXTRACTION_FAILED"
	ErrCodeArtifactsUnavailable = "ARTIFACTS_UNAVAILABLE"
	ErrCodeUsage                = "USAGE_ERROR"
	ErrCodeInvalidFormat        = "INVALID_FORMAT"
)

// ErrArtifactsUnavailable is matched by any error carrying the
// ARTIFACTS_UNAVAILABLE code
var ErrArtifactsUnavailable = &Error{
	Stage:   StagePredict,
	Code:    ErrCodeArtifactsUnavailable,
	Message: "trained artifacts unavailable",
}

// ErrDecoding is matched by any decode failure
var ErrDecoding = &Error{Code: ErrCodeDecoding, Message: "audio decode failed"}

// ErrExtraction is matched by any feature computation failure
var ErrExtraction = &Error{Code: ErrCodeExtraction, Message: "feature extraction failed"}

// NewError creates a new pipeline error
func NewError(stage Stage, path, code, message string, cause error) *Error {
	return &Error{
		Stage:   stage,
		Path:    path,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
