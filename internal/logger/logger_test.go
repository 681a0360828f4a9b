package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
		ok    bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{"INFO", zapcore.InfoLevel, true},
		{" warn ", zapcore.WarnLevel, true},
		{"error", zapcore.ErrorLevel, true},
		{"fatal", zapcore.FatalLevel, true},
		{"verbose", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
	}

	for _, tt := range tests {
		got, ok := ParseLogLevel(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLogLevel(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSetLevel(t *testing.T) {
	orig := Level()
	defer SetLevel(orig)

	SetLevel(zapcore.DebugLevel)
	if Level() != zapcore.DebugLevel {
		t.Errorf("Level() = %v after SetLevel(debug)", Level())
	}
}

func TestLoggerIsInitialized(t *testing.T) {
	if Logger() == nil {
		t.Fatal("global logger is nil")
	}
}
