package httpsurface

import (
	"net/http"

	"github.com/mediabus/mediabus-host/pkg/qrsvg"
	"github.com/mediabus/mediabus-host/pkg/runtime"
)

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("value")
	if value == "" {
		writeError(w, &runtime.Error{Kind: runtime.KindValidation, Message: "missing value"})
		return
	}

	svg, err := qrsvg.Encode(value)
	if err != nil {
		writeError(w, &runtime.Error{Kind: runtime.KindValidation, Message: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write([]byte(svg))
}
