// Package filesystem provides filesystem implementations for masmide-setup.
//
// This package contains implementations of the types.FS interface:
// the standard OS filesystem for production use and an afero-backed
// one for tests.
package filesystem
