package errs

import "net/http"

const (
	ArgsError           = 1001
	UnauthorizedError   = 1002
	ForbiddenError      = 1003
	RecordNotFoundError = 1004
	RecordExistError    = 1005
	PersistenceError    = 1501
	ServerInternalError = 500
)

var (
	ErrArgs           = NewCodeError(ArgsError, "ArgsError")
	ErrUnauthorized   = NewCodeError(UnauthorizedError, "Unauthorized")
	ErrForbidden      = NewCodeError(ForbiddenError, "Forbidden")
	ErrRecordNotFound = NewCodeError(RecordNotFoundError, "RecordNotFound")
	ErrRecordExist    = NewCodeError(RecordExistError, "RecordIsExist")
	ErrPersistence    = NewCodeError(PersistenceError, "PersistenceFailure")
	ErrInternal       = NewCodeError(ServerInternalError, "ServerInternalError")
)

// HTTPStatus maps an error code to the status the HTTP layer responds with.
func HTTPStatus(code int) int {
	switch code {
	case ArgsError:
		return http.StatusBadRequest
	case UnauthorizedError:
		return http.StatusUnauthorized
	case ForbiddenError:
		return http.StatusForbidden
	case RecordNotFoundError:
		return http.StatusNotFound
	case RecordExistError:
		return http.StatusConflict
	case PersistenceError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
