package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestCLIError_JSON(t *testing.T) {
	err := Wrap(ErrMalformedJSON, "bad document", errors.New("unexpected EOF"))
	ce, ok := err.(CLIError)
	if !ok {
		t.Fatalf("Wrap did not return a CLIError")
	}

	var decoded map[string]string
	if jsonErr := json.Unmarshal([]byte(ce.JSON()), &decoded); jsonErr != nil {
		t.Fatalf("JSON() did not produce valid json: %v", jsonErr)
	}
	if decoded["code"] != ErrMalformedJSON {
		t.Fatalf("unexpected code in JSON payload: %v", decoded)
	}
	if decoded["detail"] != "unexpected EOF" {
		t.Fatalf("cause not carried through as detail: %v", decoded)
	}
}

func TestCLIError_ErrorNoDetail(t *testing.T) {
	ce := CLIError{Code: ErrUnknownShape, Message: "not a known shape"}
	if ce.Error() != "not a known shape" {
		t.Fatalf("unexpected Error(): %q", ce.Error())
	}
}
