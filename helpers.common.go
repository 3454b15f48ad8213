package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"
)

var (
	ErrEbookNotFound  = errors.New("ebook not found")
	ErrInvalidPayload = errors.New("invalid ebook payload")
)

type (
	ContextKey        string
	missingFieldError string
)

const (
	EbookIDPrefix           string     = ""
	RequestIDPrefix         string     = "r"
	RequestIDContextKey     ContextKey = "request.id"
	RequestNumberContextKey ContextKey = "request.number"

	// maxPayloadSize bounds the ebook request body.
	maxPayloadSize int64 = 1 << 20
)

// ebookFields lists the exact keys accepted in an ebook payload.
var ebookFields = map[string]struct{}{"id": {}, "author": {}, "title": {}, "format": {}}

func (m missingFieldError) Error() string {
	return string(m) + " is required"
}

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val, ok := ctx.Value(contextKey).(string); ok {
		return val
	}
	return ""
}

// GetRequestNumberFromContext returns the request number set in
// the context. if not previously set then it returns 0.
func GetRequestNumberFromContext(ctx context.Context) uint64 {
	if val, ok := ctx.Value(RequestNumberContextKey).(uint64); ok {
		return val
	}
	return 0
}

// DecodeEbookRequestBody reads the content of an ebook creation or update request.
// The body must hold a single json object made only of known ebook fields.
func DecodeEbookRequestBody(r *http.Request, ebook *Ebook) error {
	if r.Body == nil {
		return fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadSize+1))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if int64(len(body)) > maxPayloadSize {
		return fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidPayload, maxPayloadSize)
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%w: expecting a json object", ErrInvalidPayload)
	}
	if !utf8.Valid(body) {
		return fmt.Errorf("%w: body is not valid utf-8", ErrInvalidPayload)
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err = decoder.Decode(ebook); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if _, err = decoder.Token(); err != io.EOF {
		return fmt.Errorf("%w: unexpected data after json object", ErrInvalidPayload)
	}

	// field names match case-insensitively on struct decoding.
	var fields map[string]json.RawMessage
	if err = json.Unmarshal(body, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	for key := range fields {
		if _, ok := ebookFields[key]; !ok {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidPayload, key)
		}
	}
	return nil
}

// ValidateEbookRequestBody checks that all client supplied fields are provided.
// It applies to both creation and update requests.
func ValidateEbookRequestBody(ebook *Ebook) error {
	if len(ebook.Author) == 0 {
		return missingFieldError("author")
	}

	if len(ebook.Title) == 0 {
		return missingFieldError("title")
	}

	if len(ebook.Format) == 0 {
		return missingFieldError("format")
	}

	return nil
}

// GetRequestSourceIP helps find the source IP of the caller.
func GetRequestSourceIP(r *http.Request) string {
	// Get IP from the X-REAL-IP header
	ip := r.Header.Get("X-REAL-IP")
	netIP := net.ParseIP(ip)
	if netIP != nil {
		return ip
	}

	// Get IP from X-FORWARDED-FOR header
	ips := r.Header.Get("X-FORWARDED-FOR")
	splitIps := strings.Split(ips, ",")
	for _, ip := range splitIps {
		ip = strings.TrimSpace(ip)
		netIP = net.ParseIP(ip)
		if netIP != nil {
			return ip
		}
	}

	// Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	netIP = net.ParseIP(ip)
	if netIP != nil {
		return ip
	}
	return ""
}

// IsAppRunningInDocker checks the existence of the .dockerenv
// file at the root directory and returns a boolean result. This
// helps know if the App is running in a docker container or not.
func IsAppRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}
