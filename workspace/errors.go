/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound matches a TransportError whose error code reports a missing
// resource.
var ErrNotFound = errors.New("resource does not exist")

const codeNotFound = "RESOURCE_DOES_NOT_EXIST"

// TransportError is returned by read operations when the remote API answers
// with a non-success status.
type TransportError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *TransportError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s: status %d: %s: %s", e.Op, e.StatusCode, e.Code, e.Message)
	case e.Body != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

// Is makes errors.Is(err, ErrNotFound) work for missing resources.
func (e *TransportError) Is(target error) bool {
	return target == ErrNotFound && e.Code == codeNotFound
}

type errorBody struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func newTransportError(op string, status int, body []byte) *TransportError {
	te := &TransportError{
		Op:         op,
		StatusCode: status,
		Body:       strings.TrimSpace(string(body)),
	}
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		te.Code = eb.ErrorCode
		te.Message = eb.Message
	}
	return te
}
