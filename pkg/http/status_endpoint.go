package http

import (
	"net/http"

	"github.com/canonical/mlops-libs/types"
)

type statusResponse struct {
	App      string       `json:"app"`
	Role     string       `json:"role"`
	Relation string       `json:"relation"`
	Status   types.Status `json:"status"`
}

func (s *Server) statusHandler(resp http.ResponseWriter, req *http.Request) {
	response(&statusResponse{
		App:      s.host.Name(),
		Role:     s.host.Role().String(),
		Relation: s.host.RelationName(),
		Status:   s.host.Status(),
	}, http.StatusOK, nil, resp, req)
}

type relationResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Interface  string            `json:"interface"`
	App        string            `json:"app"`
	LocalData  map[string]string `json:"localData"`
	RemoteData map[string]string `json:"remoteData"`
}

func (s *Server) relationsHandler(resp http.ResponseWriter, req *http.Request) {
	// empty list instead of null
	rels := []relationResponse{}
	if s.relations != nil {
		for _, c := range s.relations.Values() {
			rels = append(rels, relationResponse{
				ID:         c.ID,
				Name:       c.Name,
				Interface:  c.Interface,
				App:        c.App,
				LocalData:  c.LocalData,
				RemoteData: c.RemoteData,
			})
		}
	}
	response(rels, http.StatusOK, nil, resp, req)
}
