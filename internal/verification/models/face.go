package models

import (
	"context"
	"fmt"
	"image"
	"sync"
)

// Point is a position in face crop pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// Five-point landmark order used by detectors and the landmark metric.
const (
	LandmarkLeftEye = iota
	LandmarkRightEye
	LandmarkNose
	LandmarkMouthLeft
	LandmarkMouthRight
	LandmarkCount
)

// FaceCrop is a prepared face region shared by every provider in a request.
// Landmarks are relative to Image. Derived values (embeddings, resized
// grayscale copies) are memoised on the crop so concurrent providers that
// need the same input compute it once.
type FaceCrop struct {
	Image               image.Image
	Box                 image.Rectangle
	Landmarks           []Point
	DetectionConfidence float64

	mu   sync.Mutex
	memo map[string]*memoEntry
}

type memoEntry struct {
	done chan struct{}
	val  any
	err  error
}

// NewFaceCrop builds a crop; box is the face rectangle in source image coordinates.
func NewFaceCrop(img image.Image, box image.Rectangle, landmarks []Point, confidence float64) *FaceCrop {
	return &FaceCrop{
		Image:               img,
		Box:                 box,
		Landmarks:           landmarks,
		DetectionConfidence: confidence,
	}
}

// Memoize returns the value stored under key, computing it with fn on first
// use. Waiters give up when ctx ends; the computation itself keeps running for
// whoever started it.
func Memoize[T any](ctx context.Context, crop *FaceCrop, key string, fn func() (T, error)) (T, error) {
	var zero T

	crop.mu.Lock()
	if crop.memo == nil {
		crop.memo = make(map[string]*memoEntry)
	}
	entry, ok := crop.memo[key]
	if !ok {
		entry = &memoEntry{done: make(chan struct{})}
		crop.memo[key] = entry
	}
	crop.mu.Unlock()

	if !ok {
		compute(entry, fn)
	}

	select {
	case <-entry.done:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	if entry.err != nil {
		return zero, entry.err
	}
	v, ok := entry.val.(T)
	if !ok {
		return zero, errMemoType
	}
	return v, nil
}

func compute[T any](entry *memoEntry, fn func() (T, error)) {
	defer close(entry.done)
	defer func() {
		if r := recover(); r != nil {
			entry.err = fmt.Errorf("memoised computation panicked: %v", r)
			panic(r)
		}
	}()
	entry.val, entry.err = fn()
}
