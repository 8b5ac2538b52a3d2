// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package convex

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/tombee/appconn/internal/transport"
)

const (
	fallbackTransportDetails = "Unknown error"
	fallbackOtherDetails     = "Verify credentials"
)

// failureKind separates failures reported by the transport from anything
// else that went wrong while probing.
type failureKind int

const (
	failureTransport failureKind = iota + 1
	failureOther
)

// probeFailure is the closed shape every probe error is converted into.
type probeFailure struct {
	kind    failureKind
	body    []byte
	message string
}

// classifyProbeError converts err into a probeFailure. It is called once,
// at the point the probe returns. HTTPTransport reports timeouts and
// cancellations as *transport.TransportError too, so in production only
// requesters that return other error types reach failureOther.
func classifyProbeError(err error) probeFailure {
	var terr *transport.TransportError
	if errors.As(err, &terr) {
		return probeFailure{
			kind:    failureTransport,
			body:    terr.Body,
			message: terr.Message,
		}
	}
	return probeFailure{
		kind:    failureOther,
		message: err.Error(),
	}
}

// userMessage builds the text of the error returned to the caller.
// Transport failures use the response body, then the transport message.
func (f probeFailure) userMessage() string {
	if f.kind == failureTransport {
		details, ok := responseDetails(f.body)
		if !ok {
			details = f.message
		}
		if details == "" {
			details = fallbackTransportDetails
		}
		return "Failed to validate credentials: " + details
	}

	message := f.message
	if message == "" {
		message = fallbackOtherDetails
	}
	return "Unable to validate connection: " + message
}

// responseDetails renders a response body for an error message. JSON bodies
// are compacted; other text is quoted as a JSON string. Empty bodies and
// JSON null, false, 0 and "" report false.
func responseDetails(body []byte) (string, bool) {
	if len(body) == 0 {
		return "", false
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return quoteJSON(string(body)), true
	}
	if isEmptyJSONValue(decoded) {
		return "", false
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return quoteJSON(string(body)), true
	}
	return buf.String(), true
}

func isEmptyJSONValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return !val
	case float64:
		return val == 0
	case string:
		return val == ""
	default:
		return false
	}
}

func quoteJSON(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return s
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
