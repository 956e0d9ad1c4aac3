package httpx

import (
	"net/http"
)

// statusAwareResponseWriter remembers the status code written by a handler.
type statusAwareResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusAwareResponseWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusAwareResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Status returns the written status, 200 if the handler wrote nothing explicit.
func (w *statusAwareResponseWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *statusAwareResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
