package v1

import (
	"net/http"

	"github.com/tinoosan/atmledger/internal/dictionary"
)

// GET /v1/dictionary/operations?admin=true
func (s *Server) getOperationsDictionary(w http.ResponseWriter, r *http.Request) {
	adminOnly := r.URL.Query().Get("admin") == "true"
	out := struct {
		Items []dictionary.OperationDef `json:"items"`
	}{Items: dictionary.Operations(adminOnly)}
	toJSON(w, http.StatusOK, out)
}
