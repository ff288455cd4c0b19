package constants

const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"

	ContentTypeJSON = "application/json; charset=UTF-8"
	ContentTypeForm = "application/x-www-form-urlencoded; charset=UTF-8"
)

const (
	DefaultServerAddress = "http://localhost:30003/crf-service/"
	DefaultTimeoutMillis = 1000 * 60 * 5
)
