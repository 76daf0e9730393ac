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
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/blinklabs-io/godriverstation/cbor"
	"github.com/blinklabs-io/godriverstation/protocol"
)

const DefaultBufferSize = 512

var ErrRecorderClosed = errors.New("recorder is closed")

// Recorder writes events to a log from its own goroutine, so that recording never
// blocks the protocol update loop
type Recorder struct {
	logger     *slog.Logger
	writer     io.Writer
	closer     io.Closer
	bufferSize int
	eventChan  chan protocol.Event
	doneChan   chan struct{}
	waitGroup  sync.WaitGroup
	onceClose  sync.Once
	closeMutex sync.RWMutex
	closed     bool
	dropped    atomic.Uint64
	written    atomic.Uint64
	err        error
}

type RecorderOptionFunc func(*Recorder)

func WithLogger(logger *slog.Logger) RecorderOptionFunc {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithBufferSize specifies how many events can be queued before events are dropped
func WithBufferSize(size int) RecorderOptionFunc {
	return func(r *Recorder) {
		r.bufferSize = size
	}
}

// NewRecorder writes the header to w and starts recording. If w is an io.Closer
// it is closed by Close
func NewRecorder(w io.Writer, header Header, options ...RecorderOptionFunc) (*Recorder, error) {
	r := &Recorder{
		writer:     w,
		bufferSize: DefaultBufferSize,
		doneChan:   make(chan struct{}),
	}
	for _, option := range options {
		option(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "robotlog")
	if closer, ok := w.(io.Closer); ok {
		r.closer = closer
	}
	if r.bufferSize <= 0 {
		r.bufferSize = DefaultBufferSize
	}
	r.eventChan = make(chan protocol.Event, r.bufferSize)
	if err := r.write(header); err != nil {
		return nil, fmt.Errorf("write robot log header: %w", err)
	}
	r.waitGroup.Add(1)
	go r.run()
	return r, nil
}

// Create opens (or creates) the log file at path and starts a Recorder on it. New
// logs are appended to an existing file
func Create(path string, header Header, options ...RecorderOptionFunc) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	r, err := NewRecorder(f, header, options...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

// Record queues an event without blocking. Events are dropped when the queue is full
func (r *Recorder) Record(evt protocol.Event) {
	r.closeMutex.RLock()
	defer r.closeMutex.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.eventChan <- evt:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the number of events dropped because the queue was full
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Written returns the number of records written
func (r *Recorder) Written() uint64 {
	return r.written.Load()
}

// DoneChan returns a channel that is closed once all queued events are written
func (r *Recorder) DoneChan() <-chan struct{} {
	return r.doneChan
}

func (r *Recorder) run() {
	defer r.waitGroup.Done()
	for evt := range r.eventChan {
		if r.err != nil {
			continue
		}
		if err := r.write(NewRecord(evt)); err != nil {
			r.err = err
			r.logger.Error(
				"failed to write robot log record",
				"error",
				err,
			)
			continue
		}
		r.written.Add(1)
	}
}

func (r *Recorder) write(item any) error {
	data, err := cbor.Encode(item)
	if err != nil {
		return err
	}
	_, err = r.writer.Write(data)
	return err
}

// Close writes any queued events and closes the underlying writer. It returns the
// first write error, if any
func (r *Recorder) Close() error {
	var err error
	r.onceClose.Do(func() {
		r.closeMutex.Lock()
		r.closed = true
		close(r.eventChan)
		r.closeMutex.Unlock()
		r.waitGroup.Wait()
		close(r.doneChan)
		err = r.err
		if r.closer != nil {
			if closeErr := r.closer.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}
	})
	return err
}
