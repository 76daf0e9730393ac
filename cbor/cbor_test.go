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

package cbor_test

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"testing"

	"github.com/blinklabs-io/godriverstation/cbor"
	"github.com/blinklabs-io/godriverstation/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type encodeTestDefinition struct {
	CborHex string
	Object  any
}

var encodeTests = []encodeTestDefinition{
	// Simple list of numbers
	{
		CborHex: "83010203",
		Object:  []any{1, 2, 3},
	},
	// Map keys are sorted
	{
		CborHex: "a2616101616202",
		Object:  map[string]int{"b": 2, "a": 1},
	},
	// Struct as array
	{
		CborHex: "8218766474657374",
		Object: struct {
			cbor.StructAsArray
			Team uint
			Name string
		}{Team: 118, Name: "test"},
	},
}

func TestEncode(t *testing.T) {
	for _, testDef := range encodeTests {
		cborData, err := cbor.Encode(testDef.Object)
		if err != nil {
			t.Fatalf("failed to encode object to CBOR: %s", err)
		}
		cborHex := hex.EncodeToString(cborData)
		if cborHex != testDef.CborHex {
			t.Fatalf(
				"object did not encode to expected CBOR\n  got: %s\n  wanted: %s",
				cborHex,
				testDef.CborHex,
			)
		}
	}
}

func TestDecode(t *testing.T) {
	data := test.DecodeHexString("8301020301")
	var dest []uint64
	n, err := cbor.Decode(data, &dest)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []uint64{1, 2, 3}, dest)
	_, err = cbor.Decode(data[:2], &dest)
	assert.Error(t, err)
}

type storedRecord struct {
	cbor.StructAsArray
	cbor.DecodeStoreCbor
	Id   uint
	Name string
}

func (r *storedRecord) UnmarshalCBOR(data []byte) error {
	return r.UnmarshalCborGeneric(data, r)
}

func TestDecodeStoreCbor(t *testing.T) {
	data := test.DecodeHexString("8218766474657374")
	var dest storedRecord
	_, err := cbor.Decode(data, &dest)
	require.NoError(t, err)
	assert.Equal(t, uint(118), dest.Id)
	assert.Equal(t, "test", dest.Name)
	assert.Equal(t, data, dest.Cbor())
	// The stored CBOR is a copy
	data[1] = 0x00
	assert.Equal(t, byte(0x18), dest.Cbor()[1])
}

func TestStreamDecoder(t *testing.T) {
	// [1, 2, 3], "test", 7
	data := test.DecodeHexString("83010203 6474657374 07")
	dec, err := cbor.NewStreamDecoder(bytes.NewReader(data))
	require.NoError(t, err)
	var list []uint64
	raw, err := dec.DecodeRaw(&list)
	require.NoError(t, err)
	assert.Equal(t, data[0:4], raw)
	assert.Equal(t, 4, dec.Position())
	var str string
	raw, err = dec.DecodeRaw(&str)
	require.NoError(t, err)
	assert.Equal(t, "test", str)
	assert.Equal(t, data[4:9], raw)
	var num uint64
	require.NoError(t, dec.Decode(&num))
	assert.Equal(t, uint64(7), num)
	err = dec.Decode(&num)
	assert.True(t, errors.Is(err, io.EOF))
}

func TestStreamDecoderTruncated(t *testing.T) {
	data := test.DecodeHexString("8301020364746573")
	dec, err := cbor.NewStreamDecoder(bytes.NewReader(data))
	require.NoError(t, err)
	var list []uint64
	require.NoError(t, dec.Decode(&list))
	var str string
	err = dec.Decode(&str)
	require.Error(t, err)
	assert.False(t, errors.Is(err, io.EOF))
}
