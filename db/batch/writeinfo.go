// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package batch

import "github.com/pkg/errors"

// write operations staged in a batch
const (
	Put WriteType = iota
	Delete
)

type (
	// WriteType is the type of write
	WriteType uint8

	// WriteInfo is one staged write and the context reported if it fails
	WriteInfo struct {
		writeType   WriteType
		namespace   string
		key, value  []byte
		errorFormat string
		errorArgs   []interface{}
	}
)

// NewWriteInfo creates a new write info
func NewWriteInfo(writeType WriteType, namespace string, key, value []byte, errorFormat string, errorArgs ...interface{}) *WriteInfo {
	return &WriteInfo{
		writeType:   writeType,
		namespace:   namespace,
		key:         key,
		value:       value,
		errorFormat: errorFormat,
		errorArgs:   errorArgs,
	}
}

// Namespace returns the namespace of the write
func (wi *WriteInfo) Namespace() string { return wi.namespace }

// WriteType returns the type of the write
func (wi *WriteInfo) WriteType() WriteType { return wi.writeType }

// Key returns a copy of key
func (wi *WriteInfo) Key() []byte { return clone(wi.key) }

// Value returns a copy of value
func (wi *WriteInfo) Value() []byte { return clone(wi.value) }

// Wrap annotates err with the context given when the write was staged
func (wi *WriteInfo) Wrap(err error) error {
	if wi.errorFormat == "" {
		return err
	}
	return errors.Wrapf(err, wi.errorFormat, wi.errorArgs...)
}

func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
