package httpapi

import (
	"net/http"
	"sync/atomic"

	"jobmonitor-engine/internal/config"
)

type ConfigHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

func (h ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cur, _ := h.CfgVal.Load().(config.Config)
	writeJSON(w, http.StatusOK, map[string]any{
		"request":  cur.Request,
		"sites":    cur.Sites,
		"search":   cur.Search,
		"ledger":   cur.Ledger,
		"keywords": cur.Env.Keywords,
		"credentials": map[string]bool{
			"telegram": cur.Env.HasTelegram(),
			"adzuna":   cur.Env.HasAdzuna(),
			"google":   cur.Env.HasGoogle(),
		},
	})
}

func (h ConfigHandler) Validate(w http.ResponseWriter, r *http.Request) {
	cur, _ := h.CfgVal.Load().(config.Config)
	_, vr := config.NormalizeAndValidate(cur)
	writeJSON(w, http.StatusOK, vr)
}
