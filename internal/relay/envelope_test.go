// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/jeranaias/mentor-tui/internal/attachments"
)

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"action": "user_message", "message": "hi there"}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if env.Action != ActionUserMessage || env.Message != "hi there" {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestParseEnvelopeMalformed(t *testing.T) {
	for _, data := range []string{
		`{not json`,
		`[]`,
		`{"message": "no action"}`,
		`{}`,
	} {
		if _, err := ParseEnvelope([]byte(data)); !errors.Is(err, ErrMalformedEnvelope) {
			t.Errorf("%s: expected ErrMalformedEnvelope, got %v", data, err)
		}
	}
}

func TestAttachmentRoundTrip(t *testing.T) {
	files := []attachments.File{
		{Name: "notes.pdf", MIME: "application/pdf", Data: []byte("pdf-bytes")},
		{Name: "plot.png", MIME: "image/png", Data: []byte{0x89, 0x50, 0x4e, 0x47}},
	}

	encoded := EncodeAttachments(files)
	if len(encoded) != 2 {
		t.Fatalf("expected 2 encoded attachments, got %d", len(encoded))
	}
	if encoded[0].Data != base64.StdEncoding.EncodeToString([]byte("pdf-bytes")) {
		t.Error("data not base64 encoded")
	}

	decoded := DecodeAttachments(encoded)
	if len(decoded) != 2 {
		t.Fatalf("expected 2 decoded files, got %d", len(decoded))
	}
	if decoded[0].Name != "notes.pdf" || string(decoded[0].Data) != "pdf-bytes" {
		t.Errorf("round trip lost content: %+v", decoded[0])
	}
	if decoded[0].MIME != "application/pdf" {
		t.Errorf("MIME not recovered from extension: %q", decoded[0].MIME)
	}
}

func TestDecodeAttachmentsSkipsBadBase64(t *testing.T) {
	decoded := DecodeAttachments([]Attachment{
		{Name: "bad.pdf", Data: "!!! not base64 !!!"},
		{Name: "good.pdf", Data: base64.StdEncoding.EncodeToString([]byte("ok"))},
	})
	if len(decoded) != 1 || decoded[0].Name != "good.pdf" {
		t.Errorf("bad entries should be skipped, got %+v", decoded)
	}
}

func TestEncodeAttachmentsEmpty(t *testing.T) {
	if EncodeAttachments(nil) != nil {
		t.Error("no files should encode to nil")
	}
	if DecodeAttachments(nil) != nil {
		t.Error("no attachments should decode to nil")
	}
}
