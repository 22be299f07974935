package value

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DataType identifies the variant of a Value, and is itself the datatype
// tag stored on Property resources.
type DataType string

const (
	String         DataType = "string"
	Markdown       DataType = "markdown"
	Slug           DataType = "slug"
	Integer        DataType = "integer"
	Float          DataType = "float"
	Boolean        DataType = "boolean"
	Date           DataType = "date"
	Timestamp      DataType = "timestamp"
	AtomicURL      DataType = "atomicURL"
	ResourceArray  DataType = "resourceArray"
	NestedResource DataType = "nestedResource"
)

// Valid reports whether dt is one of the known datatype tags.
func (dt DataType) Valid() bool {
	switch dt {
	case String, Markdown, Slug, Integer, Float, Boolean, Date, Timestamp, AtomicURL, ResourceArray, NestedResource:
		return true
	}
	return false
}

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Value is a tagged union: Datatype selects which accessor is meaningful.
// Raw is the canonical string encoding, the form used for commit
// canonicalization (spec §4.2 stage 1) and index keys (spec §4.3).
type Value struct {
	Datatype DataType
	Raw      string
}

// New validates raw against dt and returns the constructed Value.
// This is the sole entry point the commit pipeline uses to turn an
// incoming commit's "set" entries into typed values (spec §4.2 stage 7).
func New(dt DataType, raw string) (Value, error) {
	if !dt.Valid() {
		return Value{}, fmt.Errorf("unknown datatype %q", dt)
	}
	v := Value{Datatype: dt, Raw: raw}
	if err := v.validate(); err != nil {
		return Value{}, err
	}
	return v, nil
}

func (v Value) validate() error {
	switch v.Datatype {
	case String, Markdown:
		return nil
	case Slug:
		if v.Raw == "" || !slugPattern.MatchString(v.Raw) {
			return fmt.Errorf("invalid slug %q: must match [a-z0-9-]+", v.Raw)
		}
		return nil
	case Integer:
		_, err := strconv.ParseInt(v.Raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q: %w", v.Raw, err)
		}
		return nil
	case Float:
		f, err := strconv.ParseFloat(v.Raw, 64)
		if err != nil {
			return fmt.Errorf("invalid float %q: %w", v.Raw, err)
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("float %q must be finite", v.Raw)
		}
		return nil
	case Boolean:
		if v.Raw != "true" && v.Raw != "false" {
			return fmt.Errorf("invalid boolean %q: must be \"true\" or \"false\"", v.Raw)
		}
		return nil
	case Date:
		if _, _, _, err := parseDate(v.Raw); err != nil {
			return fmt.Errorf("invalid date %q: %w", v.Raw, err)
		}
		return nil
	case Timestamp:
		ms, err := strconv.ParseInt(v.Raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", v.Raw, err)
		}
		if ms < 0 {
			return fmt.Errorf("invalid timestamp %q: must be non-negative", v.Raw)
		}
		return nil
	case AtomicURL:
		if v.Raw == "" {
			return fmt.Errorf("atomicURL value must be non-empty")
		}
		return nil
	case ResourceArray:
		for _, s := range splitResourceArray(v.Raw) {
			if s == "" {
				return fmt.Errorf("resourceArray element must be non-empty")
			}
		}
		return nil
	case NestedResource:
		if v.Raw == "" {
			return fmt.Errorf("nestedResource value must be non-empty")
		}
		return nil
	}
	return fmt.Errorf("unknown datatype %q", v.Datatype)
}

// Integer returns the decoded int64, valid only when Datatype == Integer.
func (v Value) Integer() (int64, error) {
	return strconv.ParseInt(v.Raw, 10, 64)
}

// FloatVal returns the decoded float64, valid only when Datatype == Float.
func (v Value) FloatVal() (float64, error) {
	return strconv.ParseFloat(v.Raw, 64)
}

// Bool returns the decoded bool, valid only when Datatype == Boolean.
func (v Value) Bool() bool {
	return v.Raw == "true"
}

// TimestampMillis returns the decoded millisecond epoch, valid only when
// Datatype == Timestamp.
func (v Value) TimestampMillis() (int64, error) {
	return strconv.ParseInt(v.Raw, 10, 64)
}

// ResourceArrayElements splits a ResourceArray value's canonical encoding ("\n"
// separated subjects) into individual subject URLs.
func (v Value) ResourceArrayElements() []string {
	return splitResourceArray(v.Raw)
}

// NewResourceArray canonically encodes a list of subject URLs.
func NewResourceArray(subjects []string) Value {
	return Value{Datatype: ResourceArray, Raw: strings.Join(subjects, "\n")}
}

func splitResourceArray(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}

func parseDate(raw string) (y, m, d int, err error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("expected YYYY-MM-DD")
	}
	yi, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 4 {
		return 0, 0, 0, fmt.Errorf("invalid year")
	}
	mi, err := strconv.Atoi(parts[1])
	if err != nil || mi < 1 || mi > 12 || len(parts[1]) != 2 {
		return 0, 0, 0, fmt.Errorf("invalid month")
	}
	di, err := strconv.Atoi(parts[2])
	if err != nil || di < 1 || di > 31 || len(parts[2]) != 2 {
		return 0, 0, 0, fmt.Errorf("invalid day")
	}
	return yi, mi, di, nil
}
