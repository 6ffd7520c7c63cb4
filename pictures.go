// pictures.go

// Copyright (C) 2018  Steve Merrony
// Copyright (C) 2026  The tellolink Authors

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package tello

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FrameSink receives each decoded video frame, eg. to paint it on screen.
type FrameSink func(image.Image)

// FrameWatcher hands frame files written by the decoder to a FrameSink,
// deleting each file once it has been read.
type FrameWatcher struct {
	dir    string
	sink   FrameSink
	logger *zap.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewFrameWatcher creates a stopped watcher for dir.
func NewFrameWatcher(dir string, sink FrameSink, logger *zap.Logger) *FrameWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FrameWatcher{dir: dir, sink: sink, logger: logger.Named("frames")}
}

// Start creates dir if needed and begins watching it.
func (f *FrameWatcher) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watcher != nil {
		return nil
	}
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(f.dir); err != nil {
		w.Close()
		return err
	}
	f.watcher = w
	ctx, f.cancel = context.WithCancel(ctx)
	f.done = make(chan struct{})
	go f.eventLoop(ctx, w, f.done)
	f.logger.Info("frame watcher started", zap.String("dir", f.dir))
	return nil
}

// Stop ends the watch. Frames still on disk are left there.
func (f *FrameWatcher) Stop() error {
	f.mu.Lock()
	w, cancel, done := f.watcher, f.cancel, f.done
	f.watcher, f.cancel, f.done = nil, nil, nil
	f.mu.Unlock()
	if w == nil {
		return nil
	}
	cancel()
	err := w.Close()
	<-done
	f.logger.Info("frame watcher stopped")
	return err
}

func (f *FrameWatcher) eventLoop(ctx context.Context, w *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && isFrameFile(event.Name) {
				f.deliver(event.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			f.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func isFrameFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".png")
}

func (f *FrameWatcher) deliver(path string) {
	img, err := readFrame(path)
	if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		f.logger.Debug("could not remove frame", zap.String("file", path), zap.Error(rmErr))
	}
	if err != nil {
		f.logger.Warn("could not decode frame", zap.String("file", path), zap.Error(err))
		return
	}
	if f.sink != nil {
		f.sink(img)
	}
}

func readFrame(path string) (image.Image, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return png.Decode(fh)
}
