package httpctrl

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Agrid-Dev/thermorelay/internal/command"
)

// MaxRequestSize is the only read done per connection; anything past it is
// ignored.
const MaxRequestSize = 1024

// responseHeader is sent whatever the logical status is. Clients read the
// real outcome from the "status" field of the body.
const responseHeader = "HTTP/1.0 200 OK\r\nContent-Type: application/json\r\n\r\n"

var ErrMalformedRequestLine = &command.Error{Status: http.StatusBadRequest, Msg: "Malformed request line"}

// ReadRequest performs one read of at most MaxRequestSize bytes. A client
// that closes without sending anything yields an empty slice and a nil error.
func ReadRequest(conn net.Conn, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}
	}
	buf := make([]byte, MaxRequestSize)
	n, err := conn.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return nil, nil
	}
	return nil, err
}

// Target extracts the request target: the second space-separated token of the
// first line. Method and headers are ignored.
func Target(req []byte) (string, error) {
	line := req
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	parts := strings.Split(string(line), " ")
	if len(parts) < 2 {
		return "", ErrMalformedRequestLine
	}
	return strings.TrimSpace(parts[1]), nil
}

// WriteResponse writes the fixed header followed by the JSON body.
func WriteResponse(w io.Writer, r command.Response) error {
	body, err := r.Body()
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	msg := make([]byte, 0, len(responseHeader)+len(body))
	msg = append(msg, responseHeader...)
	msg = append(msg, body...)
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
