package golog

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLogfmtFormatter(t *testing.T) {
	e := &Entry{
		Time: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Lvl:  INFO,
		Msg:  "hello world",
		Ctx:  []interface{}{"service", "contelesync", "rows", 42},
	}
	out := string(LogfmtFormatter().Format(e))
	if !strings.Contains(out, `lvl=INFO`) {
		t.Errorf("expected level in %q", out)
	}
	if !strings.Contains(out, `msg="hello world"`) {
		t.Errorf("expected quoted message in %q", out)
	}
	if !strings.Contains(out, `service="contelesync"`) {
		t.Errorf("expected context pair in %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("expected trailing newline in %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := Default().Context()
	l.SetHandler(WriterHandler(&buf, &buf, LogfmtFormatter()))
	l.SetLevel(INFO)

	l.Debugf("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("debug entry written at INFO level: %q", buf.String())
	}
	l.Infof("should appear")
	if buf.Len() == 0 {
		t.Fatal("info entry not written at INFO level")
	}
}

func TestContextInheritance(t *testing.T) {
	var buf bytes.Buffer
	base := Default().Context("app", "fieldboard")
	base.SetHandler(WriterHandler(&buf, &buf, LogfmtFormatter()))
	child := base.Context("task_id", "t1")
	child.Infof("x")
	out := buf.String()
	if !strings.Contains(out, `app="fieldboard"`) || !strings.Contains(out, `task_id="t1"`) {
		t.Errorf("expected inherited context, got %q", out)
	}
}
