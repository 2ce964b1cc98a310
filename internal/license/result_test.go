package license

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseResult(t *testing.T) {
	t.Parallel()

	t.Run("every wire code maps to its constant", func(t *testing.T) {
		t.Parallel()

		for code := 0; code <= 12; code++ {
			r, ok := ParseResult(code)
			assert.True(t, ok, "code %d", code)
			assert.Equal(t, code, r.Code())
		}
	})

	t.Run("unknown codes are rejected", func(t *testing.T) {
		t.Parallel()

		for _, code := range []int{-1, 13, 100} {
			_, ok := ParseResult(code)
			assert.False(t, ok, "code %d", code)
		}
	})
}

func TestResult_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "VALID", ResultValid.String())
	assert.Equal(t, "TRIAL_EXPIRED", ResultTrialExpired.String())
	assert.Equal(t, "LICENSE_TRANSFER_DISABLED", ResultLicenseTransferDisabled.String())
	assert.Equal(t, "Result(99)", Result(99).String())
	assert.Equal(t, "Support ended", ResultSupportEnded.Description())
	assert.Equal(t, "Unknown", Result(99).Description())
}

func TestResult_Classification(t *testing.T) {
	t.Parallel()

	t.Run("only VALID grants use", func(t *testing.T) {
		t.Parallel()

		for r := range results {
			assert.Equal(t, r == ResultValid, r.IsValid(), r.String())
		}
	})

	t.Run("server only results", func(t *testing.T) {
		t.Parallel()

		remote := []Result{ResultRetrialAttempted, ResultDisabled, ResultTrialsDisabled, ResultLicenseTransferDisabled}
		for r := range results {
			assert.Equal(t, contains(remote, r), r.IsRemoteOnly(), r.String())
		}
	})

	t.Run("ERROR is indeterminate", func(t *testing.T) {
		t.Parallel()

		assert.True(t, ResultError.IsIndeterminate())
		assert.False(t, ResultInvalid.IsIndeterminate())
		assert.False(t, ResultNotFound.IsIndeterminate())
	})
}

func TestVerdict_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "VALID", verdict(ResultValid, "").String())
	assert.Equal(t, "EXPIRED: license expired on 2024-01-01", verdict(ResultExpired, "license expired on 2024-01-01").String())
}

func contains(rs []Result, r Result) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}
