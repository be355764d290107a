package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ResultKind tags the shape of an operation result.
type ResultKind string

const (
	ResultScalar  ResultKind = "scalar"
	ResultRecord  ResultKind = "record"
	ResultRecords ResultKind = "records"
)

// Record is a single row or document returned by an operation.
type Record map[string]interface{}

// Result is the tagged union returned by every operation handler. Exactly
// one of Scalar, Record or Records is meaningful, selected by Kind.
type Result struct {
	Kind    ResultKind
	Scalar  interface{}
	Record  Record
	Records []Record
}

func ScalarResult(v interface{}) Result {
	return Result{Kind: ResultScalar, Scalar: v}
}

func RecordResult(r Record) Result {
	return Result{Kind: ResultRecord, Record: r}
}

// RecordsResult never carries a nil slice so empty lists encode as [].
func RecordsResult(rs []Record) Result {
	if rs == nil {
		rs = []Record{}
	}
	return Result{Kind: ResultRecords, Records: rs}
}

// Value returns the payload held by the active variant.
func (r Result) Value() interface{} {
	switch r.Kind {
	case ResultScalar:
		return r.Scalar
	case ResultRecord:
		return r.Record
	case ResultRecords:
		return r.Records
	default:
		return nil
	}
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Value())
}

// UnmarshalJSON infers the kind from the JSON shape: an array is records,
// an object is a record, anything else is a scalar.
func (r *Result) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		var rs []Record
		if err := json.Unmarshal(trimmed, &rs); err != nil {
			return err
		}
		*r = RecordsResult(rs)
	case len(trimmed) > 0 && trimmed[0] == '{':
		var rec Record
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return err
		}
		*r = RecordResult(rec)
	default:
		var v interface{}
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return err
		}
		*r = ScalarResult(v)
	}
	return nil
}

// String renders a scalar the way it would be read aloud, and other kinds as JSON.
func (r Result) String() string {
	if r.Kind == ResultScalar {
		return fmt.Sprint(r.Scalar)
	}
	b, err := json.Marshal(r.Value())
	if err != nil {
		return fmt.Sprintf("%v", r.Value())
	}
	return string(b)
}
