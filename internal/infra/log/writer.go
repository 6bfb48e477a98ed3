package log

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// MaxLogFileSize is the default size at which app.log is truncated.
const MaxLogFileSize = 50 * 1024 * 1024

// rotatingLogWriter truncates the file once it grows past maxBytes.
type rotatingLogWriter struct {
	mu       sync.Mutex
	file     *os.File
	path     string
	maxBytes int64
}

func openLogFile(path string, maxBytes int64) (*rotatingLogWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	w := &rotatingLogWriter{file: file, path: path, maxBytes: maxBytes}
	if err := w.truncateIfLarge(); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

func (w *rotatingLogWriter) truncateIfLarge() error {
	info, err := w.file.Stat()
	if err != nil || info.Size() <= w.maxBytes {
		return nil
	}
	w.file.Close()
	w.file, err = os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to truncate log file: %w", err)
	}
	return nil
}

func (w *rotatingLogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if err := w.truncateIfLarge(); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

func (w *rotatingLogWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

func (w *rotatingLogWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
}

var bufferPool = buffer.NewPool()

// fileEncoder writes "2006-01-02 15:04:05     LEVEL message\t{json fields}".
type fileEncoder struct {
	zapcore.Encoder
	context []zapcore.Field
}

func newFileEncoder() zapcore.Encoder {
	return &fileEncoder{Encoder: zapcore.NewJSONEncoder(zapcore.EncoderConfig{})}
}

func (e *fileEncoder) Clone() zapcore.Encoder {
	return &fileEncoder{
		Encoder: e.Encoder.Clone(),
		context: append([]zapcore.Field(nil), e.context...),
	}
}

// String fields bound with logger.With (component, pass_id) appear in every line.
func (e *fileEncoder) AddString(key, value string) {
	e.context = append(e.context, zapcore.Field{Key: key, Type: zapcore.StringType, String: value})
}

func (e *fileEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf := bufferPool.Get()
	buf.AppendString(entry.Time.Format("2006-01-02 15:04:05"))
	buf.AppendString("     ")
	buf.AppendString(entry.Level.CapitalString())
	buf.AppendString(" ")
	buf.AppendString(entry.Message)

	all := append(append([]zapcore.Field(nil), e.context...), fields...)
	if len(all) > 0 {
		values := make(map[string]interface{}, len(all))
		for _, f := range all {
			values[f.Key] = fieldValue(f)
		}
		if data, err := json.Marshal(values); err == nil {
			buf.AppendString("\t")
			buf.AppendString(string(data))
		}
	}

	buf.AppendString("\n")
	return buf, nil
}

func fieldValue(f zapcore.Field) interface{} {
	switch f.Type {
	case zapcore.StringType:
		return f.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
		return f.Integer
	case zapcore.Uint64Type, zapcore.Uint32Type:
		return uint64(f.Integer)
	case zapcore.BoolType:
		return f.Integer == 1
	case zapcore.Float64Type:
		return math.Float64frombits(uint64(f.Integer))
	case zapcore.DurationType:
		return time.Duration(f.Integer).String()
	case zapcore.ErrorType:
		if err, ok := f.Interface.(error); ok && err != nil {
			return err.Error()
		}
		return nil
	case zapcore.StringerType:
		if s, ok := f.Interface.(fmt.Stringer); ok {
			return s.String()
		}
	}
	if f.Interface != nil {
		return f.Interface
	}
	return f.Integer
}
