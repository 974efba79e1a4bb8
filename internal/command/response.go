package command

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Response is the result of one command. Payload is the JSON body and
// always carries a "status" field equal to Status. Restart means the caller
// must drop the connection without answering and restart the process.
type Response struct {
	Status  int
	Payload map[string]any
	Restart bool
}

func ok(fields map[string]any) Response {
	fields["status"] = http.StatusOK
	return Response{Status: http.StatusOK, Payload: fields}
}

func failure(status int, msg string) Response {
	return Response{
		Status:  status,
		Payload: map[string]any{"status": status, "error": msg},
	}
}

// ErrorResponse renders err as an error body. A *Error keeps its status,
// anything else is reported as 500.
func ErrorResponse(err error) Response {
	var ce *Error
	if errors.As(err, &ce) {
		return failure(ce.Status, ce.Msg)
	}
	return failure(http.StatusInternalServerError, err.Error())
}

// Body encodes the payload.
func (r Response) Body() ([]byte, error) {
	return json.Marshal(r.Payload)
}

// OK reports a 2xx logical status.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}
