package kernel

import (
	"net/http"
)

// Response is the kernel's outgoing response.
type Response struct {
	Status  int
	Header  http.Header
	content string
}

// NewResponse creates an empty 200 response.
func NewResponse() *Response {
	return &Response{
		Status: http.StatusOK,
		Header: make(http.Header),
	}
}

// Content returns the response body.
func (r *Response) Content() string {
	return r.content
}

// SetContent replaces the response body.
func (r *Response) SetContent(content string) *Response {
	r.content = content
	return r
}

// Send writes status, headers and body to w.
func (r *Response) Send(w http.ResponseWriter) error {
	for k, values := range r.Header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err := w.Write([]byte(r.content))
	return err
}
