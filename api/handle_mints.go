package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/lightlink-network/ll-bridge-relayer/database"
	"github.com/lightlink-network/ll-bridge-relayer/database/models"
	"github.com/lightlink-network/ll-bridge-relayer/types"
)

const maxPageSize = 100

var errNoDatabase = errors.New("mint archive is not configured")

func (s *Server) handleMintsGet(w http.ResponseWriter, r *http.Request) {
	if s.mints == nil {
		ERROR(w, http.StatusServiceUnavailable, errNoDatabase)
		return
	}

	// Get query parameters
	page, err := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.ParseInt(r.URL.Query().Get("pageSize"), 10, 64)
	if err != nil || pageSize < 1 {
		pageSize = 10
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	// Build filter from query parameters
	filter := models.Filter{Status: r.URL.Query().Get("status")}
	if filter.User, err = addressParam(r, "user"); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}
	if filter.Token, err = addressParam(r, "token"); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.mints.GetPreparedMints(r.Context(), filter, page, pageSize)
	if err != nil {
		ERROR(w, http.StatusInternalServerError, err)
		return
	}

	JSON(w, http.StatusOK, result)
}

func (s *Server) handleMintGet(w http.ResponseWriter, r *http.Request) {
	if s.mints == nil {
		ERROR(w, http.StatusServiceUnavailable, errNoDatabase)
		return
	}

	nonce, err := types.ParseNonce(chi.URLParam(r, "nonce"))
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	mint, err := s.mints.GetPreparedMintByNonce(r.Context(), nonce.Hex())
	if errors.Is(err, database.ErrNotFound) {
		ERROR(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		ERROR(w, http.StatusInternalServerError, err)
		return
	}

	JSON(w, http.StatusOK, mint)
}

// addressParam returns the checksummed form of an optional address query
// parameter, matching how addresses are archived.
func addressParam(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", nil
	}
	if !common.IsHexAddress(v) {
		return "", fmt.Errorf("invalid %s address %q", name, v)
	}
	return common.HexToAddress(v).Hex(), nil
}
