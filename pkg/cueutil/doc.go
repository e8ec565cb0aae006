// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE parsing utilities.
//
// The package consolidates the 3-step CUE parsing pattern used by the
// buildinfo, discovery, and config packages:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify with schema
//  3. Validate and decode to Go struct
//
// # Usage
//
//	//go:embed buildinfo_schema.cue
//	var schemaBytes []byte
//
//	info, err := cueutil.Decode[BuildInfo](
//	    schemaBytes,
//	    userFileBytes,
//	    "#BuildInfo",
//	    cueutil.WithFilename("build_info.cue"),
//	)
//	if err != nil {
//	    return nil, err // Error includes the CUE path for debugging
//	}
package cueutil
