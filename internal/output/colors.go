// Package output renders license status for the terminal.
package output

import (
	"github.com/fatih/color"

	"github.com/dagucloud/licensor/internal/license"
)

// Result symbols using Unicode characters for visual clarity.
const (
	SymbolValid         = "✓" // Check mark for a valid license
	SymbolInvalid       = "✗" // X mark for a rejected license
	SymbolExpired       = "⚠" // Warning sign for a license that ran out
	SymbolNotFound      = "○" // Empty circle when nothing is installed
	SymbolIndeterminate = "◌" // Dotted circle when the state is unknown
)

// ResultSymbol returns the appropriate Unicode symbol for a result.
func ResultSymbol(r license.Result) string {
	switch r {
	case license.ResultValid:
		return SymbolValid
	case license.ResultExpired, license.ResultTrialExpired, license.ResultSupportEnded:
		return SymbolExpired
	case license.ResultNotFound:
		return SymbolNotFound
	case license.ResultError:
		return SymbolIndeterminate
	default:
		return SymbolInvalid
	}
}

// ResultColorize applies color formatting to a string based on the result.
func ResultColorize(s string, r license.Result) string {
	switch r {
	case license.ResultValid:
		return color.GreenString(s)
	case license.ResultExpired, license.ResultTrialExpired, license.ResultSupportEnded:
		return color.YellowString(s)
	case license.ResultNotFound:
		return color.New(color.Faint).Sprint(s)
	case license.ResultError:
		return color.BlueString(s)
	default:
		return color.RedString(s)
	}
}
