package log_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/yeisme/mediarelay/pkg/configs"
	"github.com/yeisme/mediarelay/pkg/log"
)

// TestNewWithWriterLevel 测试日志级别过滤.
func TestNewWithWriterLevel(t *testing.T) {
	var buf bytes.Buffer

	l := log.NewWithWriter(configs.LogConfig{Level: "warn"}, false, &buf)
	l.Info().Msg("hidden")
	l.Warn().Str("upstream_host", "cdn.example.com").Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info event should be filtered at warn level, got %q", out)
	}

	if !strings.Contains(out, "visible") || !strings.Contains(out, "cdn.example.com") {
		t.Errorf("warn event missing from output: %q", out)
	}
}

// TestNewWithWriterInvalidLevel 测试非法级别回落到 info.
func TestNewWithWriterInvalidLevel(t *testing.T) {
	var buf bytes.Buffer

	l := log.NewWithWriter(configs.LogConfig{Level: "loud"}, false, &buf)
	if l.GetLevel() != zerolog.InfoLevel {
		t.Errorf("expected info level, got %s", l.GetLevel())
	}
}

// TestGinWriter 测试 gin 文本行转发.
func TestGinWriter(t *testing.T) {
	var buf bytes.Buffer

	l := zerolog.New(&buf)
	w := log.NewGinWriter(&l, zerolog.ErrorLevel)

	n, err := w.Write([]byte("[GIN-debug] something broke\n"))
	if err != nil || n == 0 {
		t.Fatalf("Write() = %d, %v", n, err)
	}

	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Errorf("expected error level event, got %q", buf.String())
	}
}
