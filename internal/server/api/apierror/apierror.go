// Package apierror constructs apitypes.ApiError values for the control
// API's common failure shapes, mirroring the status/title pairs a REST
// API would use even though lumend's wire protocol is newline-delimited
// JSON rather than HTTP.
package apierror

import "github.com/lumenhub/lumend/apitypes"

func ErrBadRequest(detail string) apitypes.ApiError {
	return apitypes.ApiError{Status: 400, Title: "Bad Request", Detail: detail}
}

func ErrNotFound(detail string) apitypes.ApiError {
	return apitypes.ApiError{Status: 404, Title: "Not Found", Detail: detail}
}

func ErrConflict(detail string) apitypes.ApiError {
	return apitypes.ApiError{Status: 409, Title: "Conflict", Detail: detail}
}

func ErrInternal(detail string) apitypes.ApiError {
	return apitypes.ApiError{Status: 500, Title: "Internal Server Error", Detail: detail}
}

func ErrUnauthorized(detail string) apitypes.ApiError {
	return apitypes.ApiError{Status: 401, Title: "Unauthorized", Detail: detail}
}

// WrapError normalizes any error into an apitypes.ApiError, defaulting
// to a 500 for errors not already in that shape.
func WrapError(err error) apitypes.ApiError {
	if ae, ok := err.(apitypes.ApiError); ok {
		return ae
	}
	if ae, ok := err.(*apitypes.ApiError); ok {
		return *ae
	}
	return ErrInternal(err.Error())
}
