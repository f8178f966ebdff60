package adminapi

import (
	"encoding/json"
	"net/http"

	"github.com/public/tahoe-lafs/pkg/accountant"
	"github.com/public/tahoe-lafs/pkg/crawler"
)

type handlers struct {
	accountant *accountant.Accountant
	crawler    *crawler.Crawler
}

// accountView is the JSON shape for one row of GET /accounts.
type accountView struct {
	OwnerNum     int64  `json:"owner_num"`
	Name         string `json:"name"`
	CreationTime int64  `json:"creation_time"`
	CurrentUsage int64  `json:"current_usage,omitempty"`
}

func (h *handlers) listAccounts(w http.ResponseWriter, r *http.Request) {
	if h.accountant == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "accounting not configured"})
		return
	}

	infos, err := h.accountant.GetAllAccounts()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	views := make([]accountView, len(infos))
	for i, info := range infos {
		usage, err := h.accountant.GetAccountUsage(info.OwnerNum)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		views[i] = accountView{
			OwnerNum:     info.OwnerNum,
			Name:         info.Name,
			CreationTime: info.CreationTime.Unix(),
			CurrentUsage: usage,
		}
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handlers) crawlerStatus(w http.ResponseWriter, r *http.Request) {
	if h.crawler == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "crawler not configured"})
		return
	}

	status, err := h.crawler.Status()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
