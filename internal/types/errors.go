package types

import "errors"

// Sentinel errors for FormKeeper operations.
var (
	// ErrInvalidLogic indicates a structurally malformed logic rule
	// (wrong node shape, unknown operator, bad NOT arity).
	ErrInvalidLogic = errors.New("invalid logic structure")

	// ErrUnknownComparison indicates a comparison operator name outside the registry.
	ErrUnknownComparison = errors.New("unknown comparison operator")

	// ErrLogicTooDeep indicates a rule tree exceeds MaxLogicDepth.
	ErrLogicTooDeep = errors.New("logic rule exceeds maximum nesting depth")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrSurveyNotAcceptingResponses indicates the survey is not published
	// or its submission deadline has passed.
	ErrSurveyNotAcceptingResponses = errors.New("survey is not accepting responses")

	// ErrResponseNotEditable indicates the response has already been
	// completed or abandoned.
	ErrResponseNotEditable = errors.New("response is no longer editable")

	// ErrDuplicateSubmission indicates an idempotency key collision.
	ErrDuplicateSubmission = errors.New("duplicate submission")

	// ErrMissingRequiredFields indicates required visible fields lack answers.
	ErrMissingRequiredFields = errors.New("required fields are missing answers")

	// ErrAnswerTooLarge indicates a submitted answer exceeds MaxAnswerSize.
	ErrAnswerTooLarge = errors.New("answer exceeds maximum size")

	// ErrInvalidSurveyState indicates a state transition the survey
	// lifecycle does not permit (e.g. publishing an archived survey).
	ErrInvalidSurveyState = errors.New("invalid survey state transition")
)
