package blueroute

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type (
	// ErrorHandler renders an error returned from the chain
	ErrorHandler func(c *Context, err *HTTPError) *Response

	// HTTPError carries the status code a failure should be answered with
	HTTPError struct {
		Code    int
		Message string
		Err     error // Original error
	}

	// ErrorResponse is the body written by JSONErrorHandler
	ErrorResponse struct {
		Code    int         `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}
)

// NewHTTPError builds an HTTPError with the standard status text as message
// when message is empty.
func NewHTTPError(code int, message string) *HTTPError {
	if message == "" {
		message = http.StatusText(code)
	}
	return &HTTPError{Code: code, Message: message}
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// SetErrorHandler sets the handler used for codes without an OnError handler
func (r *Router) SetErrorHandler(handler ErrorHandler) {
	r.errorHandler = handler
}

// SetPanicHandler sets the handler for panics that escape the chain
func (r *Router) SetPanicHandler(handler ErrorHandler) {
	r.panicHandler = handler
}

// SetNotFoundHandler sets the handler run when no route matches the path
func (r *Router) SetNotFoundHandler(handler HandlerFunc) {
	r.notFound = handler
}

// SetMethodNotAllowedHandler sets the handler run when a route matches the
// path but serves neither the method nor ANY. The router adds the Allow
// header to its response.
func (r *Router) SetMethodNotAllowedHandler(handler HandlerFunc) {
	r.methodNotAllowed = handler
}

// OnError sets an error handler for a specific status code
func (r *Router) OnError(code int, handler ErrorHandler) {
	r.errorHandlers[code] = handler
}

// SetErrorFormat switches the global error handler between "text" and "json"
func (r *Router) SetErrorFormat(format string) {
	switch format {
	case "json":
		r.SetErrorHandler(JSONErrorHandler)
	default:
		r.SetErrorHandler(TextErrorHandler)
	}
}

// handleError turns an error from the chain into a response
func (r *Router) handleError(c *Context, err error) *Response {
	var httpError *HTTPError
	if !errors.As(err, &httpError) {
		httpError = &HTTPError{
			Code:    http.StatusInternalServerError,
			Message: http.StatusText(http.StatusInternalServerError),
			Err:     err,
		}
	}

	if httpError.Code >= http.StatusInternalServerError {
		r.logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"pattern", c.Pattern,
			"error", fmt.Sprintf("%+v", err))
	}

	if handler, ok := r.errorHandlers[httpError.Code]; ok {
		return handler(c, httpError)
	}
	return r.errorHandler(c, httpError)
}

func (r *Router) recovered(c *Context, rec interface{}) *Response {
	err, ok := rec.(error)
	if ok {
		err = errors.WithStack(err)
	} else {
		err = errors.Errorf("panic: %v", rec)
	}

	r.logger.Error("panic recovered",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"error", fmt.Sprintf("%+v", err))

	return r.panicHandler(c, &HTTPError{
		Code:    http.StatusInternalServerError,
		Message: http.StatusText(http.StatusInternalServerError),
		Err:     err,
	})
}

// TextErrorHandler answers with the error message as plain text
func TextErrorHandler(c *Context, err *HTTPError) *Response {
	return Text(err.Code, err.Message)
}

// JSONErrorHandler answers with an ErrorResponse body
func JSONErrorHandler(c *Context, err *HTTPError) *Response {
	body := ErrorResponse{Code: err.Code, Message: err.Message}
	if err.Err != nil && err.Code < http.StatusInternalServerError {
		body.Details = err.Err.Error()
	}

	res, jerr := JSON(err.Code, body)
	if jerr != nil {
		return Text(err.Code, err.Message)
	}
	return res
}

func defaultNotFound(c *Context) (*Response, error) {
	return Text(http.StatusNotFound, "Not Found"), nil
}

func defaultMethodNotAllowed(c *Context) (*Response, error) {
	return Text(http.StatusMethodNotAllowed, "Method Not Allowed"), nil
}
