package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/MrEthical07/safeher"
	"github.com/MrEthical07/safeher/middleware"
)

var errEmptyBody = errors.New("empty body")

// readBody returns the request body, capped at maxJSONBody.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errEmptyBody
	}
	return data, nil
}

// decodeJSON fills dst from the body and writes a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	data, err := readBody(w, r)
	if err == nil {
		err = json.Unmarshal(data, dst)
	}
	if err != nil {
		writeAPIError(w, badRequest("Invalid JSON body"))
		return false
	}
	return true
}

// pathID parses the {id} wildcard and writes a 404 when it is not a
// positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeAPIError(w, newAPIError(http.StatusNotFound, CodeNotFound, "Not found"))
		return 0, false
	}
	return id, true
}

func caller(r *http.Request) *safeher.AuthResult {
	res, _ := middleware.AuthResultFromContext(r.Context())
	return res
}
