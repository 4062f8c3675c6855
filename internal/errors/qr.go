package errors

var (
	ErrMalformedToken = &DomainError{
		Code:    CodeMalformed,
		Message: "QR token is malformed",
	}
	ErrTokenNotFound = &DomainError{
		Code:    CodeNotFound,
		Message: "QR token not found",
	}
	ErrReferenceNotFound = &DomainError{
		Code:    CodeNotFound,
		Message: "reference entity not found",
	}
	ErrInvalidQRType = &DomainError{
		Code:    CodeInvalidType,
		Message: "invalid QR token type",
	}
	ErrInvalidState = &DomainError{
		Code:    CodeInvalidState,
		Message: "reference entity is not in an eligible state",
	}
	ErrInvalidRequest = &DomainError{
		Code:    CodeInvalidRequest,
		Message: "invalid request",
	}
	ErrTokenConflict = &DomainError{
		Code:    CodeConflict,
		Message: "QR token already exists",
	}
	ErrQRExpired = &DomainError{
		Code:    CodeExpired,
		Message: "QR token has expired",
	}
	ErrQRAlreadyUsed = &DomainError{
		Code:    CodeAlreadyUsed,
		Message: "QR token has already been used",
	}
	ErrQRRevoked = &DomainError{
		Code:    CodeRevoked,
		Message: "QR token has been revoked",
	}
	ErrUnauthorized = &DomainError{
		Code:    CodeUnauthorized,
		Message: "actor is not allowed to perform this operation",
	}
	ErrActionFailed = &DomainError{
		Code:    CodeActionFailed,
		Message: "token was claimed but its action could not be applied",
	}
)
