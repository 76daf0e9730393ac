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

package cbor

import (
	"bytes"
	"errors"
	"io"
	"sync"

	_cbor "github.com/fxamacker/cbor/v2"
)

var (
	cachedDecMode     _cbor.DecMode
	cachedDecModeErr  error
	cachedDecModeOnce sync.Once
)

// getDecMode returns a cached DecMode, initializing it on first use
func getDecMode() (_cbor.DecMode, error) {
	cachedDecModeOnce.Do(func() {
		decOptions := _cbor.DecOptions{
			// Log files are read from disk and may be truncated or corrupt
			MaxArrayElements: 65536,
			MaxMapPairs:      65536,
		}
		cachedDecMode, cachedDecModeErr = decOptions.DecMode()
	})
	return cachedDecMode, cachedDecModeErr
}

func Decode(dataBytes []byte, dest any) (int, error) {
	data := bytes.NewReader(dataBytes)
	decMode, err := getDecMode()
	if err != nil {
		return 0, err
	}
	if decMode == nil {
		return 0, errors.New("CBOR decoder mode not initialized")
	}
	dec := decMode.NewDecoder(data)
	err = dec.Decode(dest)
	return dec.NumBytesRead(), err
}

// StreamDecoder decodes a sequence of CBOR items from a reader and keeps track
// of the raw bytes of each item
type StreamDecoder struct {
	dec     *_cbor.Decoder
	raw     *rawRecorder
	lastPos int
}

// rawRecorder keeps everything read from the underlying reader so the raw bytes
// of each item can be returned
type rawRecorder struct {
	r   io.Reader
	buf []byte
}

func (r *rawRecorder) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.buf = append(r.buf, p[:n]...)
	return n, err
}

// NewStreamDecoder creates a decoder for sequential CBOR item extraction
func NewStreamDecoder(r io.Reader) (*StreamDecoder, error) {
	decMode, err := getDecMode()
	if err != nil {
		return nil, err
	}
	if decMode == nil {
		return nil, errors.New("CBOR decoder mode not initialized")
	}
	raw := &rawRecorder{r: r}
	return &StreamDecoder{
		dec: decMode.NewDecoder(raw),
		raw: raw,
	}, nil
}

// Position returns the number of bytes decoded so far
func (d *StreamDecoder) Position() int {
	return d.dec.NumBytesRead()
}

// Decode decodes the next CBOR item into dest. It returns io.EOF when there are
// no more items
func (d *StreamDecoder) Decode(dest any) error {
	_, err := d.DecodeRaw(dest)
	return err
}

// DecodeRaw decodes the next CBOR item into dest and returns its raw bytes
func (d *StreamDecoder) DecodeRaw(dest any) ([]byte, error) {
	if err := d.dec.Decode(dest); err != nil {
		return nil, err
	}
	pos := d.dec.NumBytesRead()
	ret := make([]byte, pos-d.lastPos)
	copy(ret, d.raw.buf[:pos-d.lastPos])
	// Drop the consumed bytes, keeping anything buffered ahead by the decoder
	d.raw.buf = d.raw.buf[pos-d.lastPos:]
	d.lastPos = pos
	return ret, nil
}
