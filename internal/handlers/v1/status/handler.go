package status

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/carson-networks/mission-server/internal/logging"
)

// Probe reports the readiness inputs shown by /status.
type Probe interface {
	Stopped() bool
	Connected() int
}

type Handler struct {
	Probe Probe
}

func NewHandler(probe Probe) Handler {
	return Handler{Probe: probe}
}

func (h *Handler) Handler(w http.ResponseWriter, req *http.Request, logData *logging.LogData) error {
	if req.Method != http.MethodGet {
		w.WriteHeader(http.StatusBadRequest)
		return errors.New("status: method not GET")
	}

	if h.Probe == nil {
		w.WriteHeader(http.StatusOK)
		return nil
	}

	connected := h.Probe.Connected()
	logData.AddData("realtimeSessions", connected)
	w.Header().Set("X-Realtime-Sessions", strconv.Itoa(connected))

	if h.Probe.Stopped() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return errors.New("status: operator stopped")
	}

	w.WriteHeader(http.StatusOK)
	return nil
}
