package license

import "fmt"

// Result is the closed set of outcomes a license validation can produce.
// The numeric values are the codes exchanged with the license server.
type Result int

const (
	ResultError                   Result = 0
	ResultIncomplete              Result = 1
	ResultExpired                 Result = 2
	ResultSupportEnded            Result = 3
	ResultUnknownHost             Result = 4
	ResultTrialExpired            Result = 5
	ResultRetrialAttempted        Result = 6
	ResultNotFound                Result = 7
	ResultInvalid                 Result = 8
	ResultDisabled                Result = 9
	ResultValid                   Result = 10
	ResultTrialsDisabled          Result = 11
	ResultLicenseTransferDisabled Result = 12
)

type resultInfo struct {
	name        string
	description string
	remoteOnly  bool
}

var results = map[Result]resultInfo{
	ResultError:                   {"ERROR", "Error", false},
	ResultIncomplete:              {"INCOMPLETE", "Incomplete", false},
	ResultExpired:                 {"EXPIRED", "Expired", false},
	ResultSupportEnded:            {"SUPPORT_ENDED", "Support ended", false},
	ResultUnknownHost:             {"UNKNOWN_HOST", "Unknown host", false},
	ResultTrialExpired:            {"TRIAL_EXPIRED", "Expired", false},
	ResultRetrialAttempted:        {"RETRIAL_ATTEMPTED", "Retrial attempted", true},
	ResultNotFound:                {"NOT_FOUND", "Not found", false},
	ResultInvalid:                 {"INVALID", "Invalid", false},
	ResultDisabled:                {"DISABLED", "Disabled", true},
	ResultValid:                   {"VALID", "Valid", false},
	ResultTrialsDisabled:          {"TRIALS_DISABLED", "Trials disabled", true},
	ResultLicenseTransferDisabled: {"LICENSE_TRANSFER_DISABLED", "License transfer disabled", true},
}

// ParseResult maps a wire code to a Result. The boolean is false for unknown codes.
func ParseResult(code int) (Result, bool) {
	r := Result(code)
	_, ok := results[r]
	return r, ok
}

// String returns the constant name of the result, e.g. TRIAL_EXPIRED.
func (r Result) String() string {
	if info, ok := results[r]; ok {
		return info.name
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// Description returns a short human readable description.
func (r Result) Description() string {
	if info, ok := results[r]; ok {
		return info.description
	}
	return "Unknown"
}

// Code returns the wire code of the result.
func (r Result) Code() int { return int(r) }

// IsValid reports whether the result grants use of the product.
func (r Result) IsValid() bool { return r == ResultValid }

// IsRemoteOnly reports whether the result can only be produced by the license server.
func (r Result) IsRemoteOnly() bool { return results[r].remoteOnly }

// IsIndeterminate reports whether the result says nothing about the license
// itself. Callers must not treat it as "not valid".
func (r Result) IsIndeterminate() bool { return r == ResultError }

// Verdict is a validation result with an optional detail message.
type Verdict struct {
	Result Result `json:"result"`
	Detail string `json:"detail,omitempty"`
}

func verdict(r Result, detail string) Verdict {
	return Verdict{Result: r, Detail: detail}
}

func (v Verdict) String() string {
	if v.Detail == "" {
		return v.Result.String()
	}
	return v.Result.String() + ": " + v.Detail
}
