package license

import (
	"strings"
	"time"
)

// Evaluate computes the offline verdict for verified claims. It performs no
// I/O; the first matching rule wins.
func Evaluate(claims *LicenseClaims, now time.Time, hardwareID string, version Version) Verdict {
	if claims == nil {
		return verdict(ResultInvalid, "no license claims")
	}

	var missing []string
	if strings.TrimSpace(claims.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(claims.FirstName) == "" {
		missing = append(missing, "first name")
	}
	if strings.TrimSpace(claims.LastName) == "" {
		missing = append(missing, "last name")
	}
	if len(missing) > 0 {
		return verdict(ResultIncomplete, "missing "+strings.Join(missing, ", "))
	}

	if claims.HardwareID != hardwareID {
		return verdict(ResultUnknownHost, "license is bound to another computer")
	}

	if exp := claims.Expiration(); exp != nil && now.After(*exp) {
		if claims.IsTrial() {
			return verdict(ResultTrialExpired, "trial expired on "+exp.Format(ReleaseDateLayout))
		}
		return verdict(ResultExpired, "license expired on "+exp.Format(ReleaseDateLayout))
	}

	if end := claims.SupportEndDate(); end != nil && version.ReleaseDate.After(*end) {
		return verdict(ResultSupportEnded, "version "+version.ID+" was released after support ended on "+end.Format(ReleaseDateLayout))
	}

	return verdict(ResultValid, "")
}
