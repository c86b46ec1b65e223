package survey

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/footpulse/core"
)

var (
	patternTag  = "bulkpattern"
	patternText = "invalid bulk pattern"

	modeTag  = "fanoutmode"
	modeText = "provide either respondent_ids or pattern, not both"
)

// RegisterValidators registers survey-specific validators and translations.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(assignmentsStructValidation, NewAssignments{})
	core.RegisterCustomTranslation(validate, translator, patternTag, patternText)
	core.RegisterCustomTranslation(validate, translator, modeTag, modeText)
}

// assignmentsStructValidation enforces the two fanout modes on NewAssignments:
// exactly one of an explicit respondent id list or a named bulk pattern.
func assignmentsStructValidation(sl validator.StructLevel) {
	na := sl.Current().Interface().(NewAssignments)

	hasExplicit := len(na.RespondentIDs) > 0
	hasPattern := na.Pattern != ""
	if hasExplicit == hasPattern {
		sl.ReportError(na.RespondentIDs, "respondent_ids", "RespondentIDs", modeTag, "")
		return
	}

	if hasPattern && !isKnownPattern(na.Pattern) {
		sl.ReportError(na.Pattern, "pattern", "Pattern", patternTag, "")
	}
	if hasPattern && len(na.TargetIDs) > 0 {
		sl.ReportError(na.TargetIDs, "target_ids", "TargetIDs", modeTag, "")
	}
}

func isKnownPattern(p BulkPattern) bool {
	for _, known := range AllBulkPatterns {
		if p == known {
			return true
		}
	}
	return false
}
