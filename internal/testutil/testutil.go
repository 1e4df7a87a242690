// Package testutil holds helpers shared by package tests.
package testutil

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"sync/atomic"
	"testing"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var uniqueSeq atomic.Int64

// UniqueName returns a name that is unique within the test binary.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueSeq.Add(1))
}

// MultipartResume builds an apply form body with the given applicant name and
// resume file. An empty fileName omits the file part.
// It returns the body and its Content-Type header.
func MultipartResume(t testing.TB, name, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if name != "" {
		if err := mw.WriteField("name", name); err != nil {
			t.Fatalf("write name field: %v", err)
		}
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("resume", fileName)
		if err != nil {
			t.Fatalf("create resume part: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write resume part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	return &buf, mw.FormDataContentType()
}
