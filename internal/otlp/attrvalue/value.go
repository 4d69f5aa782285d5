// Package attrvalue represents OTLP attribute values as a closed sum type
// instead of a generic interface{}, so every consumer pattern-matches
// exhaustively instead of type-switching on ad-hoc wire shapes.
package attrvalue

import commonpb "go.opentelemetry.io/proto/otlp/common/v1"

// Kind identifies which variant of Value is populated.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindDouble Kind = "double"
	KindBool   Kind = "bool"
	KindBytes  Kind = "bytes"
	KindArray  Kind = "array"
	KindKvList Kind = "kvlist"
	KindEmpty  Kind = "empty"
)

// Value is the tagged union of every OTLP AnyValue variant. Exactly one
// field is meaningful, selected by Kind.
type Value struct {
	Kind   Kind
	Str    string
	Int    int64
	Double float64
	Bool   bool
	Bytes  []byte
	Array  []Value
	KvList []KeyValue
}

// KeyValue is one entry of a KvList or an attribute list.
type KeyValue struct {
	Key   string
	Value Value
}

// IsComplex reports whether the value is an array or kvlist — these are
// never eligible for promotion to a typed column regardless of policy.
func (v Value) IsComplex() bool {
	return v.Kind == KindArray || v.Kind == KindKvList
}

// FromProto converts a wire AnyValue into the internal tagged union.
func FromProto(av *commonpb.AnyValue) Value {
	if av == nil {
		return Value{Kind: KindEmpty}
	}
	switch v := av.Value.(type) {
	case *commonpb.AnyValue_StringValue:
		return Value{Kind: KindString, Str: v.StringValue}
	case *commonpb.AnyValue_IntValue:
		return Value{Kind: KindInt, Int: v.IntValue}
	case *commonpb.AnyValue_DoubleValue:
		return Value{Kind: KindDouble, Double: v.DoubleValue}
	case *commonpb.AnyValue_BoolValue:
		return Value{Kind: KindBool, Bool: v.BoolValue}
	case *commonpb.AnyValue_BytesValue:
		return Value{Kind: KindBytes, Bytes: v.BytesValue}
	case *commonpb.AnyValue_ArrayValue:
		if v.ArrayValue == nil {
			return Value{Kind: KindArray}
		}
		out := make([]Value, len(v.ArrayValue.Values))
		for i, e := range v.ArrayValue.Values {
			out[i] = FromProto(e)
		}
		return Value{Kind: KindArray, Array: out}
	case *commonpb.AnyValue_KvlistValue:
		if v.KvlistValue == nil {
			return Value{Kind: KindKvList}
		}
		out := make([]KeyValue, len(v.KvlistValue.Values))
		for i, kv := range v.KvlistValue.Values {
			out[i] = KeyValue{Key: kv.Key, Value: FromProto(kv.Value)}
		}
		return Value{Kind: KindKvList, KvList: out}
	default:
		return Value{Kind: KindEmpty}
	}
}

// KVsFromProto converts a wire attribute list into key/value pairs,
// preserving wire order (last-writer-wins duplicates are left to the caller).
func KVsFromProto(attrs []*commonpb.KeyValue) []KeyValue {
	out := make([]KeyValue, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, KeyValue{Key: a.Key, Value: FromProto(a.Value)})
	}
	return out
}

// ToJSON renders a Value as a plain Go value suitable for json.Marshal,
// used for catch-all JSONB columns and log/metric body storage.
func (v Value) ToJSON() interface{} {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return v.Int
	case KindDouble:
		return v.Double
	case KindBool:
		return v.Bool
	case KindBytes:
		return v.Bytes
	case KindArray:
		out := make([]interface{}, len(v.Array))
		for i, e := range v.Array {
			out[i] = e.ToJSON()
		}
		return out
	case KindKvList:
		out := make(map[string]interface{}, len(v.KvList))
		for _, kv := range v.KvList {
			out[kv.Key] = kv.Value.ToJSON()
		}
		return out
	default:
		return nil
	}
}

// BodyTypeID maps a Value's Kind to the log_body_types reference-table id.
func (v Value) BodyTypeID() int16 {
	switch v.Kind {
	case KindString:
		return 1
	case KindInt:
		return 2
	case KindDouble:
		return 3
	case KindBool:
		return 4
	case KindBytes:
		return 5
	case KindArray:
		return 6
	case KindKvList:
		return 7
	default:
		return 0
	}
}
