package domain

// FailureType classifies why an attempt did not succeed.
type FailureType string

const (
	FailureTypeNone           FailureType = ""
	FailureTypeConfiguration  FailureType = "configuration"
	FailureTypeAuthentication FailureType = "authentication"
	FailureTypeNetwork        FailureType = "network"
	FailureTypeUnrecognized   FailureType = "unrecognized"
	FailureTypeInternal       FailureType = "internal"
)

// Retryable reports whether failures of this type are worth another attempt.
func (f FailureType) Retryable() bool {
	switch f {
	case FailureTypeNetwork, FailureTypeUnrecognized, FailureTypeInternal:
		return true
	}
	return false
}

// Outcome is the classified result of one action attempt.
// Success implies Retryable is false; use the constructors to keep it that way.
type Outcome struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Retryable bool        `json:"retryable"`
	Failure   FailureType `json:"failure,omitempty"`
}

// Succeeded covers both "done now" and "was already done".
func Succeeded(msg string) Outcome {
	return Outcome{Success: true, Message: msg}
}

// Failed builds a failed outcome whose retryability follows from the failure type.
func Failed(ft FailureType, msg string) Outcome {
	return Outcome{Message: msg, Failure: ft, Retryable: ft.Retryable()}
}

func ConfigurationFailure(msg string) Outcome  { return Failed(FailureTypeConfiguration, msg) }
func AuthenticationFailure(msg string) Outcome { return Failed(FailureTypeAuthentication, msg) }
func NetworkFailure(msg string) Outcome        { return Failed(FailureTypeNetwork, msg) }
func UnrecognizedFailure(msg string) Outcome   { return Failed(FailureTypeUnrecognized, msg) }
func InternalFailure(msg string) Outcome       { return Failed(FailureTypeInternal, msg) }

// NeedsOperator is true when only a human can fix the failure.
func (o Outcome) NeedsOperator() bool {
	return o.Failure == FailureTypeConfiguration || o.Failure == FailureTypeAuthentication
}
