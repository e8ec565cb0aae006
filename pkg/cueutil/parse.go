// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// options holds the tunable parts of a Decode call.
type options struct {
	filename string
	concrete bool
}

// Option configures a Decode call.
type Option func(*options)

// WithFilename sets the file name used in error messages.
func WithFilename(name string) Option {
	return func(o *options) { o.filename = name }
}

// WithConcrete requires every field in the unified value to be concrete
// before decoding. Off by default so documents may omit optional sections.
func WithConcrete() Option {
	return func(o *options) { o.concrete = true }
}

// Decode performs the 3-step CUE parsing flow:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify with the schema definition at schemaPath
//  3. Validate and decode into T
//
// Errors carry the file name and the CUE path of the offending value so a
// schema violation points directly at the broken key.
func Decode[T any](schema, data []byte, schemaPath string, opts ...Option) (*T, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	filename := o.filename
	if filename == "" {
		filename = "<input>"
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), filename)
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	unified := schemaRoot.Unify(userValue)

	if o.concrete {
		if err := unified.Validate(cue.Concrete(true)); err != nil {
			return nil, FormatError(err, filename)
		}
	} else {
		if err := unified.Validate(); err != nil {
			return nil, FormatError(err, filename)
		}
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, filename)
	}
	return &result, nil
}

// CompileAndDecode compiles a standalone CUE document (no schema) and decodes
// it into T. Used for descriptor files whose shape is validated by the caller.
func CompileAndDecode[T any](data []byte, filename string) (*T, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(filename))
	if value.Err() != nil {
		return nil, FormatError(value.Err(), filename)
	}
	var result T
	if err := value.Decode(&result); err != nil {
		return nil, FormatError(err, filename)
	}
	return &result, nil
}
