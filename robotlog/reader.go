// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package robotlog

import (
	"errors"
	"fmt"
	"io"

	"github.com/blinklabs-io/godriverstation/cbor"
)

// Reader reads the records of a log in order
type Reader struct {
	dec    *cbor.StreamDecoder
	header Header
}

// NewReader reads the log header from r
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := cbor.NewStreamDecoder(r)
	if err != nil {
		return nil, err
	}
	ret := &Reader{dec: dec}
	if err := dec.Decode(&ret.header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read robot log header: %w", err)
	}
	if ret.header.Version != FormatVersion {
		return nil, fmt.Errorf(
			"%w: %d",
			ErrUnsupportedVersion,
			ret.header.Version,
		)
	}
	return ret, nil
}

func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next record, or io.EOF at the end of the log
func (r *Reader) Next() (Record, error) {
	var ret Record
	if err := r.dec.Decode(&ret); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf(
			"read robot log record at offset %d: %w",
			r.dec.Position(),
			err,
		)
	}
	return ret, nil
}

// ReadAll returns the header and every record of a log
func ReadAll(r io.Reader) (Header, []Record, error) {
	reader, err := NewReader(r)
	if err != nil {
		return Header{}, nil, err
	}
	var records []Record
	for {
		record, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return reader.Header(), records, err
		}
		records = append(records, record)
	}
	return reader.Header(), records, nil
}
