package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"verbose", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log := New(tt.level, "text", &bytes.Buffer{})
			if log.GetLevel() != tt.want {
				t.Errorf("New(%q) level = %v, want %v", tt.level, log.GetLevel(), tt.want)
			}
		})
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", "json", &buf)
	log.WithField("attachment", "cat.png").Info("staged")

	out := buf.String()
	if !strings.Contains(out, `"attachment":"cat.png"`) {
		t.Errorf("json output missing field: %s", out)
	}
	if !strings.Contains(out, `"msg":"staged"`) {
		t.Errorf("json output missing message: %s", out)
	}
}

func TestDiscard(t *testing.T) {
	log := Discard()
	log.Error("dropped")
}
