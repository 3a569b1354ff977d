package metrics

import (
	"bytes"
	"net/http"
	"sync"

	"github.com/giygas/routemetrics/logging"
	"github.com/prometheus/common/expfmt"
)

var textContentType = string(expfmt.NewFormat(expfmt.TypeTextPlain))

var bufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// Handler serves the current bundle of shared in the Prometheus text format.
// The snapshot is encoded into a buffer first so an encoding error becomes a
// 500 instead of a truncated scrape.
func Handler(shared *Shared) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := bufferPool.Get().(*bytes.Buffer)
		buf.Reset()
		defer bufferPool.Put(buf)

		if err := shared.WriteText(buf); err != nil {
			logging.Error("Failed to encode metrics", "error", err)
			http.Error(w, "failed to encode metrics", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", textContentType)
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(buf.Bytes()); err != nil {
			logging.Debug("Failed to write metrics response", "error", err)
		}
	})
}
