package blueroute

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
)

// Response is what handlers and middleware hand back through the chain. The
// router writes it to the client once the outermost middleware returns.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func NewResponse(status int) *Response {
	return &Response{Status: status, Header: http.Header{}}
}

// Text builds a plain text response
func Text(status int, body string) *Response {
	res := NewResponse(status)
	res.Header.Set("Content-Type", "text/plain; charset=utf-8")
	res.Body = []byte(body)
	return res
}

// JSON marshals v into a response body
func JSON(status int, v interface{}) (*Response, error) {
	jsoned, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode json response")
	}

	res := NewResponse(status)
	res.Header.Set("Content-Type", "application/json")
	res.Body = jsoned
	return res, nil
}

func NoContent() *Response {
	return NewResponse(http.StatusNoContent)
}

// Redirect points the client at url. code should be a 3xx status.
func Redirect(code int, url string) *Response {
	res := NewResponse(code)
	res.Header.Set("Location", url)
	return res
}

// SetHeader sets a header and returns the response for chaining
func (r *Response) SetHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = http.Header{}
	}
	r.Header.Set(key, value)
	return r
}

func (r *Response) write(w http.ResponseWriter, req *http.Request) error {
	header := w.Header()
	for k, v := range r.Header {
		header[k] = v
	}

	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if req.Method == http.MethodHead || !bodyAllowed(status) || len(r.Body) == 0 {
		return nil
	}

	_, err := w.Write(r.Body)
	return err
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
