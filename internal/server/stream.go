package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/ayusman/mudra/internal/bus"
)

// FrameStore keeps the latest annotated JPEG and serves it as a single
// snapshot or as an MJPEG stream. It subscribes to the visualization
// topic as a bus sink; payloads other than JPEG bytes are ignored.
type FrameStore struct {
	mu     sync.RWMutex
	frame  []byte
	notify chan struct{}

	// streamMu admits one MJPEG puller at a time. Browsers tend to
	// open a second stream on reload before closing the first, and
	// OpenCV-based consumers break when frames interleave.
	streamMu sync.Mutex
}

// NewFrameStore returns an empty store.
func NewFrameStore() *FrameStore {
	return &FrameStore{notify: make(chan struct{})}
}

// Name implements bus.Sink.
func (f *FrameStore) Name() string { return "mjpeg" }

// Deliver implements bus.Sink, replacing the stored frame.
func (f *FrameStore) Deliver(env bus.Envelope) error {
	frame, ok := env.Payload.([]byte)
	if !ok || len(frame) == 0 {
		return nil
	}

	f.mu.Lock()
	f.frame = frame
	close(f.notify)
	f.notify = make(chan struct{})
	f.mu.Unlock()
	return nil
}

// Latest returns the stored frame and a channel that is closed when a
// newer frame arrives.
func (f *FrameStore) Latest() ([]byte, <-chan struct{}) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.frame, f.notify
}

// ServeFrame writes the latest frame as a plain JPEG snapshot.
func (f *FrameStore) ServeFrame(w http.ResponseWriter, r *http.Request) {
	frame, _ := f.Latest()
	if len(frame) == 0 {
		http.Error(w, "no frame captured yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(frame)))
	w.Write(frame)
}

// ServeStream writes an MJPEG multipart stream until the client goes
// away. A second concurrent puller is refused with 409.
func (f *FrameStore) ServeStream(w http.ResponseWriter, r *http.Request) {
	if !f.streamMu.TryLock() {
		http.Error(w, "stream already in use", http.StatusConflict)
		return
	}
	defer f.streamMu.Unlock()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	for {
		frame, changed := f.Latest()
		if len(frame) > 0 {
			if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame)); err != nil {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			if _, err := fmt.Fprint(w, "\r\n"); err != nil {
				return
			}
			flusher.Flush()
		}

		select {
		case <-ctx.Done():
			return
		case <-changed:
		}
	}
}
