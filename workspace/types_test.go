/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workspace

import (
	"encoding/json"
	"testing"
)

func TestLibraryJSON(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantKind string
		wantStr  string
		wantOut  string
	}{{
		name:     "wheel",
		in:       `{"whl":"dbfs:/libs/a.whl"}`,
		wantKind: "whl",
		wantStr:  "whl:dbfs:/libs/a.whl",
		wantOut:  `{"whl":"dbfs:/libs/a.whl"}`,
	}, {
		name:     "pypi with repo",
		in:       `{"pypi":{"package":"requests","repo":"https://pypi.example"}}`,
		wantKind: "pypi",
		wantStr:  "pypi:requests",
		wantOut:  `{"pypi":{"package":"requests","repo":"https://pypi.example"}}`,
	}, {
		name:     "maven is preserved",
		in:       `{"maven":{"coordinates":"org.x:y:1.0"}}`,
		wantKind: "maven",
		wantStr:  `{"maven":{"coordinates":"org.x:y:1.0"}}`,
		wantOut:  `{"maven":{"coordinates":"org.x:y:1.0"}}`,
	}, {
		name:     "empty",
		in:       `{}`,
		wantKind: "",
		wantStr:  "<empty>",
		wantOut:  `{}`,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l Library
			if err := json.Unmarshal([]byte(tt.in), &l); err != nil {
				t.Fatalf("Unmarshal: got = %v, wanted = nil", err)
			}
			if got := l.Kind(); got != tt.wantKind {
				t.Errorf("Kind: got = %q, wanted = %q", got, tt.wantKind)
			}
			if got := l.String(); got != tt.wantStr {
				t.Errorf("String: got = %q, wanted = %q", got, tt.wantStr)
			}
			out, err := json.Marshal(l)
			if err != nil {
				t.Fatalf("Marshal: got = %v, wanted = nil", err)
			}
			if got := string(out); got != tt.wantOut {
				t.Errorf("Marshal: got = %s, wanted = %s", got, tt.wantOut)
			}
		})
	}
}

func TestLibraryUnmarshalRejectsNonObject(t *testing.T) {
	var l Library
	if err := json.Unmarshal([]byte(`"dbfs:/a.whl"`), &l); err == nil {
		t.Error("Unmarshal error: got = nil, wanted = non-nil")
	}
}

func TestResultOK(t *testing.T) {
	tests := []struct {
		name string
		res  *Result
		want bool
	}{
		{"nil", nil, false},
		{"empty body", &Result{StatusCode: 200}, true},
		{"empty object", &Result{StatusCode: 200, Body: "{}\n"}, true},
		{"payload", &Result{StatusCode: 200, Body: `{"error_code":"X"}`}, false},
		{"bad status", &Result{StatusCode: 400, Body: "{}"}, false},
		{"server error", &Result{StatusCode: 503}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.OK(); got != tt.want {
				t.Errorf("OK: got = %v, wanted = %v", got, tt.want)
			}
		})
	}
}
