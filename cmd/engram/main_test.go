package main

import (
	"testing"

	"github.com/engramdb/engram/internal/logger"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected logger.LogLevel
	}{
		{"debug", logger.DEBUG},
		{"info", logger.INFO},
		{"warn", logger.WARN},
		{"error", logger.ERROR},
		{"WARN", logger.WARN},
		{"unknown", logger.INFO},
		{"", logger.INFO},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.expected {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestSplitTags(t *testing.T) {
	tags := splitTags("rust, security,,performance ")
	if len(tags) != 3 {
		t.Fatalf("Expected 3 tags, got %v", tags)
	}
	if tags[0] != "rust" || tags[1] != "security" || tags[2] != "performance" {
		t.Errorf("Unexpected tags: %v", tags)
	}

	if splitTags("") != nil {
		t.Error("Empty input should yield no tags")
	}
}

func TestVersion(t *testing.T) {
	if version != "0.1.0" {
		t.Errorf("Expected version '0.1.0', got '%s'", version)
	}
}
