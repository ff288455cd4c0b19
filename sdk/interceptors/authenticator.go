package interceptors

import "github.com/crf-service/crf-sdk-go/sdk/constants"

// Authenticator adds a bearer token to requests that do not carry their own
// Authorization header.
type Authenticator struct {
	token string
}

func NewAuthenticator(token string) *Authenticator {
	return &Authenticator{
		token: token,
	}
}

func (a *Authenticator) BeforeRequest(data InterceptorData) (InterceptorData, error) {
	if a.token == "" || data.Request.Header.Get(constants.HeaderAuthorization) != "" {
		return data, nil
	}
	data.Request.Header.Set(constants.HeaderAuthorization, "Bearer "+a.token)
	return data, nil
}

func (a *Authenticator) AfterResponse(data InterceptorData) (InterceptorData, error) {
	return data, nil
}
