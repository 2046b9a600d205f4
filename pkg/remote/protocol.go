package remote

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	// ProtocolVersion is the current Holt wire protocol version.
	ProtocolVersion = "1"

	// ClientCapabilities lists all capabilities this client supports.
	ClientCapabilities = "zstd"

	headerProtocol     = "Holt-Protocol"
	headerCapabilities = "Holt-Capabilities"
	headerObjectType   = "X-Object-Type"
	headerTruncated    = "X-Truncated"
)

// Error codes carried in structured server error responses.
const (
	codeRefConflict    = "ref_conflict"
	codeObjectNotFound = "object_not_found"
)

// Capabilities is a set of protocol capability names.
type Capabilities struct {
	set map[string]struct{}
}

// ParseCapabilities parses a comma-separated capability string.
func ParseCapabilities(raw string) Capabilities {
	caps := Capabilities{set: make(map[string]struct{})}
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			caps.set[name] = struct{}{}
		}
	}
	return caps
}

// Has reports whether the capability is present.
func (c Capabilities) Has(name string) bool {
	_, ok := c.set[name]
	return ok
}

// String returns a sorted comma-separated capability string.
func (c Capabilities) String() string {
	names := make([]string, 0, len(c.set))
	for k := range c.set {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// RemoteError is a structured error response from the server.
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Detail  string `json:"detail,omitempty"`
}

func (e *RemoteError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%s): %s", e.Message, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Unwrap maps well-known error codes onto package sentinels so callers
// can test with errors.Is.
func (e *RemoteError) Unwrap() error {
	switch e.Code {
	case codeRefConflict:
		return ErrRefConflict
	case codeObjectNotFound:
		return ErrObjectNotFound
	default:
		return nil
	}
}

// tryParseRemoteError attempts to parse a JSON error response body.
func tryParseRemoteError(body []byte) *RemoteError {
	var re RemoteError
	if err := json.Unmarshal(body, &re); err != nil {
		return nil
	}
	if re.Message == "" && re.Code == "" {
		return nil
	}
	return &re
}
