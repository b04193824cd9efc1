package golog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

const timeFormat = "2006-01-02T15:04:05-0700"

type Formatter interface {
	Format(e *Entry) []byte
}

type FormatterFunc func(*Entry) []byte

func (f FormatterFunc) Format(e *Entry) []byte {
	return f(e)
}

type HandlerFunc func(e *Entry) error

func (h HandlerFunc) Log(e *Entry) error {
	return h(e)
}

// WriterHandler writes formatted entries to out, sending WARN and
// above to err instead.
func WriterHandler(out, err io.Writer, fmtr Formatter) Handler {
	return &writerHandler{out: out, err: err, fmtr: fmtr}
}

type writerHandler struct {
	out, err io.Writer
	fmtr     Formatter
}

func (h *writerHandler) Log(e *Entry) error {
	m := h.fmtr.Format(e)
	if e.Lvl <= WARN {
		_, err := h.err.Write(m)
		return err
	}
	_, err := h.out.Write(m)
	return err
}

// LogfmtFormatter formats entries as key=value pairs.
func LogfmtFormatter() Formatter {
	return FormatterFunc(func(e *Entry) []byte {
		buf := &bytes.Buffer{}
		buf.WriteString("t=")
		buf.WriteString(e.Time.Format(timeFormat))
		buf.WriteString(" lvl=")
		buf.WriteString(e.Lvl.String())
		buf.WriteString(" msg=")
		buf.WriteString(strconv.Quote(e.Msg))
		if e.Src != "" {
			buf.WriteString(" src=")
			buf.WriteString(strconv.Quote(e.Src))
		}
		for i := 0; i+1 < len(e.Ctx); i += 2 {
			k, ok := e.Ctx[i].(string)
			if !ok {
				k = "_error"
			}
			buf.WriteByte(' ')
			buf.WriteString(k)
			buf.WriteByte('=')
			buf.WriteString(formatValue(e.Ctx[i+1]))
		}
		buf.WriteByte('\n')
		return buf.Bytes()
	})
}

// JSONFormatter formats entries as one JSON object per line.
func JSONFormatter() Formatter {
	return FormatterFunc(func(e *Entry) []byte {
		js := make(map[string]interface{}, len(e.Ctx)/2+4)
		for i := 0; i+1 < len(e.Ctx); i += 2 {
			k, ok := e.Ctx[i].(string)
			if !ok {
				js["_error"] = fmt.Sprintf("%+v is not a string key", e.Ctx[i])
				continue
			}
			js[k] = e.Ctx[i+1]
		}
		js["t"] = e.Time.Format(timeFormat)
		js["level"] = e.Lvl.String()
		js["msg"] = e.Msg
		if e.Src != "" {
			js["src"] = e.Src
		}
		b, err := json.Marshal(js)
		if err != nil {
			b, _ = json.Marshal(map[string]string{"JSONFormatterError": err.Error()})
		}
		return append(b, '\n')
	})
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(t)
	case error:
		return strconv.Quote(t.Error())
	case time.Time:
		return t.Format(timeFormat)
	case fmt.Stringer:
		return strconv.Quote(t.String())
	}
	return strconv.Quote(fmt.Sprintf("%+v", v))
}
