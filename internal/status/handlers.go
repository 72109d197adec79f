package status

import (
	"net/http"

	"github.com/tokenledger/walletsync/internal/common"
	"github.com/tokenledger/walletsync/pkg/syncer"
)

// CursorLister is the read side of the cursor store the status surface
// needs.
type CursorLister interface {
	Cursors() ([]*syncer.Cursor, error)
}

type Service struct {
	network string
	cursors CursorLister
}

func NewService(network string, cursors CursorLister) *Service {
	return &Service{
		network: network,
		cursors: cursors,
	}
}

type health struct {
	Status  string `json:"status"`
	Network string `json:"network"`
}

func (s *Service) Health(w http.ResponseWriter, r *http.Request) {
	err := common.Body(w, health{Status: "ok", Network: s.network})
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// Cursors returns the per-token read cursor positions
func (s *Service) Cursors(w http.ResponseWriter, r *http.Request) {
	cursors, err := s.cursors.Cursors()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	err = common.BodyMultiple(w, cursors)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
