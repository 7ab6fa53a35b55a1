package app

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"empty defaults to serve", []string{}, CommandServe},
		{"serve", []string{"serve"}, CommandServe},
		{"migrate", []string{"migrate"}, CommandMigrate},
		{"migrate up is plain migrate", []string{"migrate", "up"}, CommandMigrate},
		{"migrate down", []string{"migrate", "down"}, CommandMigrateDown},
		{"healthcheck", []string{"healthcheck"}, CommandHealthcheck},
		{"help", []string{"help"}, CommandHelp},
		{"short help flag", []string{"-h"}, CommandHelp},
		{"long help flag", []string{"--help"}, CommandHelp},
		{"removed worker mode falls back to serve", []string{"worker"}, CommandServe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCommand(tt.args); got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestPrintUsage_ListsEveryCommand(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintUsage(&buf); err != nil {
		t.Fatalf("PrintUsage: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "uso: natillera <comando>") {
		t.Errorf("usage header missing: %q", out)
	}
	for _, c := range commandUsage {
		if !strings.Contains(out, c.usage) {
			t.Errorf("usage output missing %q", c.usage)
		}
	}
}
