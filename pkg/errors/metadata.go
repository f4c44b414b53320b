/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package errors

// MetadataError attaches key-value context, such as the operation id or the
// path, to an error without changing its status.
type MetadataError struct {
	err      error
	metadata map[string]string
}

// Error returns the error message.
func (e MetadataError) Error() string {
	return e.err.Error()
}

// Status returns the status of the wrapped error.
func (e MetadataError) Status() StatusCode {
	return StatusOf(e.err)
}

// Unwrap returns the wrapped error.
func (e MetadataError) Unwrap() error {
	return e.err
}

// Metadata returns a copy of the attached metadata.
func (e MetadataError) Metadata() map[string]string {
	result := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		result[k] = v
	}
	return result
}

// WithMetadata wraps err with the given metadata, merging with metadata that
// is already attached.
func WithMetadata(err error, metadata map[string]string) error {
	if err == nil || len(metadata) == 0 {
		return err
	}

	merged := make(map[string]string)
	for k, v := range Metadata(err) {
		merged[k] = v
	}
	for k, v := range metadata {
		merged[k] = v
	}

	return MetadataError{err: err, metadata: merged}
}

// Metadata returns the metadata attached to the error chain, or nil.
func Metadata(err error) map[string]string {
	var metaErr MetadataError
	if As(err, &metaErr) {
		return metaErr.Metadata()
	}
	return nil
}
