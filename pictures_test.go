// pictures_test.go

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
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFrame writes a PNG beside dir and renames it in, the way the decoder's atomic writes do.
func writeFrame(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	tmp := filepath.Join(filepath.Dir(dir), name+".tmp")
	fh, err := os.Create(tmp)
	require.NoError(t, err)
	require.NoError(t, png.Encode(fh, img))
	require.NoError(t, fh.Close())

	final := filepath.Join(dir, name)
	require.NoError(t, os.Rename(tmp, final))
	return final
}

func TestFrameWatcherDeliversAndRemoves(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	got := make(chan image.Image, 4)
	fw := NewFrameWatcher(dir, func(img image.Image) { got <- img }, nil)
	require.NoError(t, fw.Start(context.Background()))
	defer fw.Stop()

	path := writeFrame(t, dir, "frame_1.png", 32, 24)

	select {
	case img := <-got:
		assert.Equal(t, image.Pt(32, 24), img.Bounds().Size())
	case <-time.After(2 * time.Second):
		t.Fatal("frame never delivered")
	}
	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, time.Second, 5*time.Millisecond)
}

func TestFrameWatcherIgnoresOtherFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	got := make(chan image.Image, 4)
	fw := NewFrameWatcher(dir, func(img image.Image) { got <- img }, nil)
	require.NoError(t, fw.Start(context.Background()))
	defer fw.Stop()

	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0644))
	writeFrame(t, dir, "frame_2.png", 4, 4)

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("frame never delivered")
	}
	_, err := os.Stat(other)
	assert.NoError(t, err, "non-frame files are left alone")
}

func TestFrameWatcherStop(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	got := make(chan image.Image, 4)
	fw := NewFrameWatcher(dir, func(img image.Image) { got <- img }, nil)
	require.NoError(t, fw.Start(context.Background()))
	require.NoError(t, fw.Start(context.Background()))
	require.NoError(t, fw.Stop())
	require.NoError(t, fw.Stop())

	path := writeFrame(t, dir, "frame_3.png", 4, 4)
	select {
	case <-got:
		t.Fatal("delivered after stop")
	case <-time.After(100 * time.Millisecond):
	}
	_, err := os.Stat(path)
	assert.NoError(t, err, "frames written after stop stay on disk")
}
