package service

type ErrorCode string

const (
	ErrorCodePlanLimit     ErrorCode = "PLAN_LIMIT"
	ErrorCodeNotAuthorized ErrorCode = "NOT_AUTHORIZED"
	ErrorCodeMemberExists  ErrorCode = "MEMBER_EXISTS"
	ErrorCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrorCodeInvalidBody   ErrorCode = "INVALID_BODY"
	ErrorCodeUnspecified   ErrorCode = "UNSPECIFIED"
)

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func (e *Error) Error() string {
	return e.Message
}
