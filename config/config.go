package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingOption is wrapped by OptionError when an option is absent.
var ErrMissingOption = errors.New("missing option")

// OptionError reports an option that cannot be converted to its setting.
type OptionError struct {
	Option string
	Reason string
	Err    error
}

func (e *OptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("option %q: %s: %v", e.Option, e.Reason, e.Err)
	}
	return fmt.Sprintf("option %q: %s", e.Option, e.Reason)
}

func (e *OptionError) Unwrap() error { return e.Err }

// Load reads a YAML option file and merges it over Defaults.
func Load(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	opts, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return opts, nil
}

// Decode reads YAML options from r and merges them over Defaults. An empty
// document yields the defaults.
func Decode(r io.Reader) (Options, error) {
	raw := Options{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return WithDefaults(raw), nil
}

// Marshal renders options as YAML.
func Marshal(opts Options) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any(opts)); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// reader pulls typed values out of Options, remembering the first failure.
type reader struct {
	opts Options
	err  error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) value(name string) (any, bool) {
	v, ok := r.opts[name]
	if !ok || v == nil {
		r.fail(&OptionError{Option: name, Reason: "not set", Err: ErrMissingOption})
		return nil, false
	}
	return v, true
}

func (r *reader) number(name string) float64 {
	v, ok := r.value(name)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			r.fail(&OptionError{Option: name, Reason: "not a number", Err: err})
		}
		return f
	}
	r.fail(&OptionError{Option: name, Reason: fmt.Sprintf("unexpected type %T", v)})
	return 0
}

func (r *reader) finite(name string) float64 {
	f := r.number(name)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		r.fail(&OptionError{Option: name, Reason: fmt.Sprintf("must be a finite number, got %v", f)})
		return 0
	}
	return f
}

func (r *reader) positive(name string) float64 {
	f := r.finite(name)
	if f <= 0 {
		r.fail(&OptionError{Option: name, Reason: fmt.Sprintf("must be positive, got %v", f)})
	}
	return f
}

func (r *reader) nonNegative(name string) float64 {
	f := r.finite(name)
	if f < 0 {
		r.fail(&OptionError{Option: name, Reason: fmt.Sprintf("must not be negative, got %v", f)})
	}
	return f
}

// maxSeconds bounds durations; time.Duration overflows at this value.
const maxSeconds = float64(math.MaxInt64) / float64(time.Second)

func (r *reader) seconds(name string, allowZero bool) time.Duration {
	var f float64
	if allowZero {
		f = r.nonNegative(name)
	} else {
		f = r.positive(name)
	}
	if f >= maxSeconds {
		r.fail(&OptionError{Option: name, Reason: fmt.Sprintf("must be less than %.0f seconds, got %v", maxSeconds, f)})
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

func (r *reader) boolean(name string) bool {
	v, ok := r.value(name)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			r.fail(&OptionError{Option: name, Reason: "not a boolean", Err: err})
		}
		return parsed
	}
	r.fail(&OptionError{Option: name, Reason: fmt.Sprintf("unexpected type %T", v)})
	return false
}

func (r *reader) text(name string) string {
	v, ok := r.value(name)
	if !ok {
		return ""
	}
	s, isString := v.(string)
	if !isString {
		r.fail(&OptionError{Option: name, Reason: fmt.Sprintf("unexpected type %T", v)})
	}
	return s
}
