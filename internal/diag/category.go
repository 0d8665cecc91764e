package diag

// Category is a taxonomy identifier assigned by the classifier.
type Category string

const (
	CatMissingFunction       Category = "missing_function"
	CatTypeNotFound          Category = "type_not_found"
	CatMissingMember         Category = "missing_member"
	CatTypeConformance       Category = "type_conformance"
	CatUnterminatedString    Category = "unterminated_string"
	CatExtraneousCloseBrace  Category = "extraneous_close_brace"
	CatIncorrectOptional     Category = "incorrect_optional"
	CatUnwrapOptional        Category = "unwrap_optional"
	CatSendableProperty      Category = "sendable_property"
	CatNonSendableCrossActor Category = "non_sendable_cross_actor"
	CatActorIsolation        Category = "actor_isolation"
	CatSwift6LanguageMode    Category = "swift6_language_mode"

	// Fallbacks for messages no specific rule recognises.
	CatGeneralWarning Category = "general_warning"
	CatOtherError     Category = "other_error"
)

// Fallback returns the catch-all category for a severity.
func Fallback(sev Severity) Category {
	if sev == SevWarning {
		return CatGeneralWarning
	}
	return CatOtherError
}

// IsFallback reports whether c is one of the catch-all categories.
func (c Category) IsFallback() bool {
	return c == CatGeneralWarning || c == CatOtherError
}
