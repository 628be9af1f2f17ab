package api

import (
	"errors"
	"net/http"
)

func (s *Server) handleStatusGet(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		ERROR(w, http.StatusServiceUnavailable, errors.New("relayer not running"))
		return
	}
	JSON(w, http.StatusOK, s.status.Status())
}
