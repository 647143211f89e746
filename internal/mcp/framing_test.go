package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := Request{JSONRPC: "2.0", ID: "1", Method: "ping"}
	if err := writeFrame(&buf, req); err != nil {
		t.Fatal(err)
	}

	body, err := readFrame(bufio.NewReader(&buf))
	if err != nil {
		t.Fatal(err)
	}
	var got Request
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got.Method != "ping" || got.ID != "1" {
		t.Errorf("round trip = %+v", got)
	}
}

func TestFrameSequence(t *testing.T) {
	var buf bytes.Buffer
	for _, m := range []string{"first", "second", "third"} {
		if err := writeFrame(&buf, Request{JSONRPC: "2.0", ID: m, Method: m}); err != nil {
			t.Fatal(err)
		}
	}
	r := bufio.NewReader(&buf)
	for _, want := range []string{"first", "second", "third"} {
		body, err := readFrame(r)
		if err != nil {
			t.Fatal(err)
		}
		var got Request
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatal(err)
		}
		if got.Method != want {
			t.Errorf("method = %q, want %q", got.Method, want)
		}
	}
}

func TestReadFrame_MissingHeader(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("\r\n{}"))
	if _, err := readFrame(r); err == nil {
		t.Error("missing Content-Length accepted")
	}
}

func TestReadFrame_BodyWithNewlines(t *testing.T) {
	// Content-Length framing must carry bodies that contain blank lines.
	payload := map[string]string{"text": "line one\n\nline two\r\n"}
	var buf bytes.Buffer
	if err := writeFrame(&buf, payload); err != nil {
		t.Fatal(err)
	}
	body, err := readFrame(bufio.NewReader(&buf))
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got["text"] != payload["text"] {
		t.Errorf("text = %q", got["text"])
	}
}
