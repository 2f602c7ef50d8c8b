package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/devnote/internal/normalize"
)

// NormalizeHandler converts pasted clipboard content to Markdown. It needs no
// owner: nothing is stored.
type NormalizeHandler struct {
	normalizer *normalize.Normalizer
	logger     *slog.Logger
}

func NewNormalizeHandler(normalizer *normalize.Normalizer, logger *slog.Logger) *NormalizeHandler {
	return &NormalizeHandler{normalizer: normalizer, logger: logger}
}

type normalizeRequest struct {
	HTML string `json:"html"`
	Text string `json:"text"`
}

// HandleNormalize runs the paste conversion.
//
// HTTP: POST /api/normalize
// REQUEST BODY:  {"html": "<p>...</p>", "text": "..."}
// RESPONSE BODY: {"markdown": "...", "format": "html"|"wiki"|"plain"}
func (h *NormalizeHandler) HandleNormalize(w http.ResponseWriter, r *http.Request) {
	var req normalizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	res := h.normalizer.Normalize(normalize.Input{HTML: req.HTML, Text: req.Text})
	h.logger.Debug("clipboard normalized",
		slog.String("format", string(res.Format)),
		slog.Int("input_bytes", len(req.HTML)+len(req.Text)),
		slog.Int("output_bytes", len(res.Markdown)),
	)
	writeJSON(w, http.StatusOK, res)
}
