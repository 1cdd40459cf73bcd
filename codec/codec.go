// Package codec defines the serialization boundary between user values and
// the JSON documents the storage engine persists, plus the canonical
// datetime text format the filter builder must agree with when rendering
// datetime comparisons.
package codec

import (
	"context"
	"io"
	"time"

	gojson "github.com/goccy/go-json"
)

// RoundTripDateTimeFormat is the canonical textual datetime form: a
// fixed-offset, fully-qualified ISO-8601 instant with seven fractional
// digits, chosen so that formatting and reparsing never loses precision.
const RoundTripDateTimeFormat = "2006-01-02T15:04:05.0000000Z07:00"

// Codec serializes values to and from the document store's JSON
// representation. It is injected at Engine construction; there is no
// global default codec instance baked into the engine itself.
type Codec interface {
	// Serialize encodes value as the JSON bytes stored in the Data column.
	Serialize(value any) ([]byte, error)
	// Deserialize decodes r into out. ctx carries the caller's
	// cancellation; the default JSON codec checks it once, before decoding.
	Deserialize(ctx context.Context, r io.Reader, out any) error
	// DateTimeSerializationFormat returns the canonical textual format
	// datetime filter predicates must serialize through.
	DateTimeSerializationFormat() string
}

// JSON is the default Codec, backed by github.com/goccy/go-json as a
// drop-in, faster replacement for encoding/json.
type JSON struct{}

// New returns the default goccy/go-json-backed Codec.
func New() Codec { return JSON{} }

// Serialize implements Codec.
func (JSON) Serialize(value any) ([]byte, error) {
	return gojson.Marshal(value)
}

// Deserialize implements Codec. It checks ctx once before decoding;
// gojson.NewDecoder does not itself honor context cancellation, so the
// Document Engine's read_many checks its context before each row instead.
func (JSON) Deserialize(ctx context.Context, r io.Reader, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return gojson.NewDecoder(r).Decode(out)
}

// DateTimeSerializationFormat implements Codec.
func (JSON) DateTimeSerializationFormat() string { return RoundTripDateTimeFormat }

// FormatTime renders value through c's canonical datetime format, for use
// as a query.TimeFormatter. It accepts time.Time, *time.Time, or a string
// already in the canonical form; any other type fails to format.
func FormatTime(c Codec, value any) (string, bool) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format(c.DateTimeSerializationFormat()), true
	case *time.Time:
		if v == nil {
			return "", false
		}
		return v.UTC().Format(c.DateTimeSerializationFormat()), true
	case string:
		return v, true
	default:
		return "", false
	}
}
