package surrealair

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrTooManyResults is returned when a single result was expected but
	// the statement returned more.
	ErrTooManyResults = errors.New("too many results")
	// ErrRecordNotFound is returned by strict decoding when the statement
	// returned no result.
	ErrRecordNotFound = errors.New("record not found")
)

// SlotResult is the outcome of one statement of a query.
type SlotResult struct {
	Status string          `json:"status"`
	Time   string          `json:"time,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	// Detail describes the failure of a statement.
	Detail string `json:"detail,omitempty"`
}

// OK reports whether the statement succeeded.
func (r SlotResult) OK() bool {
	return r.Status == "" || r.Status == "OK"
}

// Response holds the outcome of every statement of a query, in statement
// order.
type Response []SlotResult

// ParseResponse reads a response in the engine's JSON format.
func ParseResponse(data []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("cannot parse response: %w", err)
	}
	return resp, nil
}

// Err returns the error of the first failed statement.
func (r Response) Err() error {
	for i, slot := range r {
		if !slot.OK() {
			return &QueryError{Slot: i, Status: slot.Status, Detail: slot.Detail}
		}
	}
	return nil
}

// QueryError reports a statement the engine failed to run.
type QueryError struct {
	Slot   int
	Status string
	Detail string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("statement %d failed with status %s: %s", e.Slot+1, e.Status, e.Detail)
}

// DecodeError reports a result that does not have the requested shape.
type DecodeError struct {
	Slot int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode result %d: %v", e.Slot+1, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// rows returns the results of a slot. A single value counts as one row and
// null as none.
func (r Response) rows(slot int) ([]json.RawMessage, error) {
	if slot < 0 || slot >= len(r) {
		return nil, &DecodeError{Slot: slot, Err: fmt.Errorf("response has %d results", len(r))}
	}
	res := r[slot]
	if !res.OK() {
		return nil, &QueryError{Slot: slot, Status: res.Status, Detail: res.Detail}
	}
	data := bytes.TrimSpace(res.Result)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if data[0] != '[' {
		return []json.RawMessage{data}, nil
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &DecodeError{Slot: slot, Err: err}
	}
	return rows, nil
}

func decode[T any](slot int, row json.RawMessage) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(row, v); err != nil {
		return nil, &DecodeError{Slot: slot, Err: err}
	}
	return v, nil
}

// DecodeOne decodes the result of the first statement. It returns nil if
// there is no result and [ErrTooManyResults] if there is more than one.
func DecodeOne[T any](r Response) (*T, error) {
	return DecodeOneAt[T](r, 0)
}

// DecodeOneAt is [DecodeOne] for the statement at index slot.
func DecodeOneAt[T any](r Response, slot int) (*T, error) {
	rows, err := r.rows(slot)
	switch {
	case err != nil:
		return nil, err
	case len(rows) == 0:
		return nil, nil
	case len(rows) > 1:
		return nil, fmt.Errorf("cannot decode result %d: got %d rows: %w", slot+1, len(rows), ErrTooManyResults)
	}
	return decode[T](slot, rows[0])
}

// DecodeMany decodes every result of the first statement.
func DecodeMany[T any](r Response) ([]T, error) {
	return DecodeManyAt[T](r, 0)
}

// DecodeManyAt is [DecodeMany] for the statement at index slot.
func DecodeManyAt[T any](r Response, slot int) ([]T, error) {
	rows, err := r.rows(slot)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	vs := make([]T, 0, len(rows))
	for _, row := range rows {
		v, err := decode[T](slot, row)
		if err != nil {
			return nil, err
		}
		vs = append(vs, *v)
	}
	return vs, nil
}

// DecodeFirst decodes the first result of the first statement, or returns
// nil if there is none.
func DecodeFirst[T any](r Response) (*T, error) {
	return DecodeFirstAt[T](r, 0)
}

// DecodeFirstAt is [DecodeFirst] for the statement at index slot.
func DecodeFirstAt[T any](r Response, slot int) (*T, error) {
	rows, err := r.rows(slot)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return decode[T](slot, rows[0])
}

// DecodeLast decodes the last result of the first statement, or returns nil
// if there is none.
func DecodeLast[T any](r Response) (*T, error) {
	return DecodeLastAt[T](r, 0)
}

// DecodeLastAt is [DecodeLast] for the statement at index slot.
func DecodeLastAt[T any](r Response, slot int) (*T, error) {
	rows, err := r.rows(slot)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return decode[T](slot, rows[len(rows)-1])
}

// GetOne is the strict form of [DecodeOne]: it returns [ErrRecordNotFound]
// when the first statement has no result.
func GetOne[T any](r Response) (T, error) {
	var zero T
	v, err := DecodeOne[T](r)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, fmt.Errorf("cannot decode result 1: %w", ErrRecordNotFound)
	}
	return *v, nil
}
