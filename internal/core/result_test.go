package core

import (
	"encoding/json"
	"testing"
)

func TestMarshalSuccessPassthrough(t *testing.T) {
	r := OK(map[string]any{"dag_id": "etl", "is_paused": false})

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["dag_id"] != "etl" {
		t.Errorf("expected payload passthrough, got %v", out)
	}
	if _, ok := out["error"]; ok {
		t.Error("success result must not carry an error field")
	}
}

func TestMarshalErrorShape(t *testing.T) {
	r := Failure(KindRemote, "HTTP 404", "dag not found")

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["error"] != "HTTP 404" {
		t.Errorf("expected error code, got %v", out["error"])
	}
	if out["message"] != "dag not found" {
		t.Errorf("expected message preserved, got %v", out["message"])
	}
}

func TestMarshalErrorWithoutMessage(t *testing.T) {
	r := Failuref(KindTransport, "connection refused")

	data, _ := json.Marshal(r)
	var out map[string]any
	json.Unmarshal(data, &out)

	if out["error"] != "connection refused" {
		t.Errorf("expected error code, got %v", out["error"])
	}
	if _, ok := out["message"]; ok {
		t.Error("empty message must be omitted")
	}
}

func TestZeroValueMarshalsToEmptyObject(t *testing.T) {
	var r Result
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("expected {}, got %s", data)
	}
}

func TestIsError(t *testing.T) {
	if OK(nil).IsError() {
		t.Error("OK must not be an error")
	}
	if !Failure(KindPolicy, "ReadOnlyMode", "").IsError() {
		t.Error("Failure must be an error")
	}
}
