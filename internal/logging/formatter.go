package logging

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"text/template"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006-01-02 15:04:05.000"

var bufferPool = buffer.NewPool()

// Record is the value a formatter template is executed against. Thread
// fields report the logging goroutine and are computed only when referenced.
type Record struct {
	entry zapcore.Entry
}

func (r Record) Time() string    { return r.entry.Time.Format(timeLayout) }
func (r Record) Level() string   { return severityOf(r.entry.Level).String() }
func (r Record) Line() int       { return r.entry.Caller.Line }
func (r Record) Process() int    { return os.Getpid() }
func (r Record) Message() string { return strings.ToValidUTF8(r.entry.Message, "�") }

// Logger returns the logger name, or "root" for the root logger.
func (r Record) Logger() string {
	if r.entry.LoggerName == "" {
		return RootLogger
	}
	return r.entry.LoggerName
}

// Module returns the package name of the calling function.
func (r Record) Module() string {
	module, _ := splitFunction(r.entry.Caller.Function)
	return module
}

// Function returns the calling function without its package.
func (r Record) Function() string {
	_, fn := splitFunction(r.entry.Caller.Function)
	return fn
}

func (r Record) ThreadID() uint64 { return goroutineID() }

func (r Record) ThreadName() string {
	id := goroutineID()
	if id == 1 {
		return "main"
	}
	return "goroutine-" + strconv.FormatUint(id, 10)
}

// splitFunction turns "example.com/a/pkg.(*T).Method" into "pkg" and
// "(*T).Method".
func splitFunction(full string) (string, string) {
	if full == "" {
		return "?", "?"
	}
	last := full
	if i := strings.LastIndex(full, "/"); i >= 0 {
		last = full[i+1:]
	}
	pkg, fn, ok := strings.Cut(last, ".")
	if !ok {
		return "?", last
	}
	return pkg, fn
}

func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	field := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(field, ' '); i >= 0 {
		field = field[:i]
	}
	id, err := strconv.ParseUint(string(field), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// ParseFormatter compiles a formatter template, rejecting references to
// fields a Record does not have.
func ParseFormatter(spec FormatterSpec) (*template.Template, error) {
	tmpl, err := template.New(spec.Name).Option("missingkey=error").Parse(spec.Template)
	if err != nil {
		return nil, fmt.Errorf("parse formatter %q: %w", spec.Name, err)
	}
	var dryRun bytes.Buffer
	if err := tmpl.Execute(&dryRun, Record{}); err != nil {
		return nil, fmt.Errorf("formatter %q: %w", spec.Name, err)
	}
	return tmpl, nil
}

// templateEncoder renders the entry through a template and appends any
// structured fields as a compact JSON object.
type templateEncoder struct {
	zapcore.Encoder
	tmpl *template.Template
}

func newTemplateEncoder(tmpl *template.Template) zapcore.Encoder {
	return &templateEncoder{
		Encoder: zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
		}),
		tmpl: tmpl,
	}
}

func (e *templateEncoder) Clone() zapcore.Encoder {
	return &templateEncoder{Encoder: e.Encoder.Clone(), tmpl: e.tmpl}
}

func (e *templateEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	line := bufferPool.Get()
	if err := e.tmpl.Execute(line, Record{entry: ent}); err != nil {
		line.Free()
		return nil, fmt.Errorf("render %q: %w", e.tmpl.Name(), err)
	}

	extra, err := e.Encoder.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		line.Free()
		return nil, err
	}
	if obj := bytes.TrimSpace(extra.Bytes()); len(obj) > 0 && string(obj) != "{}" {
		line.AppendByte(' ')
		_, _ = line.Write(obj)
	}
	extra.Free()

	if ent.Stack != "" {
		line.AppendByte('\n')
		line.AppendString(ent.Stack)
	}
	line.AppendString(zapcore.DefaultLineEnding)
	return line, nil
}
