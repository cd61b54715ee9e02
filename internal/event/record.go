package event

import "fmt"

// Field is one named value of a Record.
type Field struct {
	Name  string
	Value any
}

// Record is the script-visible form of an event: a type name plus ordered
// fields. Values are Go numbers, strings, bools or Object handles.
type Record struct {
	Type   string
	Fields []Field
}

// Get returns the value of the named field.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// FieldReader reads fields of the structured value a script returned.
//
// Field returns the Go form of the named field: float64 for numbers, string,
// bool, the native value of an object handle, or map/slice values for
// tables. The second result is false when the field is absent.
type FieldReader interface {
	Field(name string) (any, bool)
}

// ReadString reads a string field, reporting a MarshalError when it is
// absent or not a string.
func ReadString(r FieldReader, kind Kind, name string) (string, error) {
	v, ok := r.Field(name)
	if !ok {
		return "", &MarshalError{Kind: kind, Field: name, Message: "missing value"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &MarshalError{Kind: kind, Field: name, Message: "expected string, got " + typeName(v)}
	}
	return s, nil
}

// ReadInt reads an integral number field, reporting a MarshalError when it
// is absent, not a number or not integral.
func ReadInt(r FieldReader, kind Kind, name string) (int64, error) {
	v, ok := r.Field(name)
	if !ok {
		return 0, &MarshalError{Kind: kind, Field: name, Message: "missing value"}
	}
	n, ok := v.(float64)
	if !ok {
		return 0, &MarshalError{Kind: kind, Field: name, Message: "expected number, got " + typeName(v)}
	}
	if n != float64(int64(n)) {
		return 0, &MarshalError{Kind: kind, Field: name, Message: "expected integer"}
	}
	return int64(n), nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "nil"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case map[string]any, []any:
		return "table"
	case Object:
		return "userdata"
	default:
		return fmt.Sprintf("%T", v)
	}
}
