package logger

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Field is a typed key/value attached to a log entry.
type Field interface {
	AddTo(event *zerolog.Event)
	GetKeyValue() (string, interface{})
}

type stringField struct{ key, val string }

func (f stringField) AddTo(e *zerolog.Event) { e.Str(f.key, f.val) }
func (f stringField) GetKeyValue() (string, interface{}) { return f.key, f.val }

type intField struct {
	key string
	val int64
}

func (f intField) AddTo(e *zerolog.Event) { e.Int64(f.key, f.val) }
func (f intField) GetKeyValue() (string, interface{}) { return f.key, f.val }

type floatField struct {
	key string
	val float64
}

func (f floatField) AddTo(e *zerolog.Event) { e.Float64(f.key, f.val) }
func (f floatField) GetKeyValue() (string, interface{}) { return f.key, f.val }

type boolField struct {
	key string
	val bool
}

func (f boolField) AddTo(e *zerolog.Event) { e.Bool(f.key, f.val) }
func (f boolField) GetKeyValue() (string, interface{}) { return f.key, f.val }

type errorField struct{ err error }

func (f errorField) AddTo(e *zerolog.Event) { e.Err(f.err) }
func (f errorField) GetKeyValue() (string, interface{}) {
	if f.err == nil {
		return "error", nil
	}
	return "error", f.err.Error()
}

type anyField struct {
	key string
	val interface{}
}

func (f anyField) AddTo(e *zerolog.Event) { e.Interface(f.key, f.val) }
func (f anyField) GetKeyValue() (string, interface{}) { return f.key, f.val }

func String(key, value string) Field { return stringField{key, value} }

func Strings(key string, value []string) Field { return stringField{key, strings.Join(value, ", ")} }

func Int(key string, value int) Field { return intField{key, int64(value)} }

func Int64(key string, value int64) Field { return intField{key, value} }

func Float64(key string, value float64) Field { return floatField{key, value} }

func Bool(key string, value bool) Field { return boolField{key, value} }

func Error(err error) Field { return errorField{err} }

func Any(key string, value interface{}) Field { return anyField{key, value} }

// Duration logs the value in milliseconds.
func Duration(key string, value time.Duration) Field {
	return intField{key, value.Milliseconds()}
}
