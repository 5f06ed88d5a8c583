package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/canonical/mlops-libs/types"
)

// serviceInfoHandler returns the remote Service for requirers and the
// published one for providers
func (s *Server) serviceInfoHandler(resp http.ResponseWriter, req *http.Request) {
	if s.host.Role() == types.RoleProvider {
		info, err := s.host.ProvidedServiceInfo()
		response(&info, http.StatusOK, err, resp, req)
		return
	}

	info, err := s.host.ServiceInfo(req.Context())
	response(info, http.StatusOK, err, resp, req)
}

func (s *Server) publishHandler(resp http.ResponseWriter, req *http.Request) {
	var info types.ServiceInfo
	dec := json.NewDecoder(req.Body)
	defer req.Body.Close()

	if err := dec.Decode(&info); err != nil {
		resp.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(resp, "%s", err)
		return
	}

	err := s.host.Publish(req.Context(), info)
	response(&info, http.StatusOK, err, resp, req)
}
