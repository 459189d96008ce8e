// respond.go - Content negotiation for proxied payloads
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEApplicationMsgpack is served when the client asks for it in Accept.
const MIMEApplicationMsgpack = "application/msgpack"

func wantsMsgpack(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), MIMEApplicationMsgpack)
}

// respondPayload writes a backend JSON payload with status 200, re-encoded as
// msgpack when negotiated.
func respondPayload(c echo.Context, payload json.RawMessage) error {
	if !wantsMsgpack(c) {
		return c.JSONBlob(http.StatusOK, payload)
	}

	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return NewInternalError("failed to decode backend payload", err)
	}
	data, err := msgpack.Marshal(v)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, MIMEApplicationMsgpack, data)
}
