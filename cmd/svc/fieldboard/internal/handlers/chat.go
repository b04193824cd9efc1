package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tecnotop/backend/cmd/svc/fieldboard/internal/assistant"
	"github.com/tecnotop/backend/cmd/svc/fieldboard/internal/dal"
	"github.com/tecnotop/backend/libs/httputil"
)

const maxChatBody = 64 << 10

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"sessionId"`
	Reply     string `json:"reply"`
}

func (h *handlers) serveChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxChatBody)).Decode(&req); err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		httputil.JSONError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = assistant.NewSessionID()
	}

	f, err := h.parseFilters(r)
	if err != nil {
		f = nil
	}

	reply, err := h.assistant.Respond(r.Context(), req.SessionID, req.Message, h.dashboardContext(r, f), dashboardFilters(f))
	if err != nil {
		h.internalError(w, err)
		return
	}
	httputil.JSONResponse(w, http.StatusOK, &chatResponse{
		SessionID: req.SessionID,
		Reply:     reply,
	})
}

// dashboardContext summarizes what the user currently sees on the
// dashboard so the assistant can answer in terms of it. Best effort;
// the chat still works when the rollups fail.
func (h *handlers) dashboardContext(r *http.Request, f *dal.Filters) string {
	if f == nil {
		return ""
	}
	v, err := h.cached(r, cacheKey("chat-context", f), func() (interface{}, error) {
		return h.buildDashboardContext(r.Context(), f), nil
	})
	if err != nil {
		return ""
	}
	return v.(string)
}

func (h *handlers) buildDashboardContext(ctx context.Context, f *dal.Filters) string {
	var b strings.Builder
	if s, err := h.dal.Summary(ctx, f); err == nil {
		b.WriteString("Resumo do dashboard com os filtros atuais:\n")
		fmt.Fprintf(&b, "- Total de visitas: %d | Vendedores: %d | Empresas: %d\n",
			s.TotalVisits, s.TotalSellers, s.TotalCompanies)
	}
	if sellers, err := h.dal.SellerRollup(ctx, f, 5); err == nil && len(sellers) != 0 {
		parts := make([]string, len(sellers))
		for i, s := range sellers {
			parts[i] = fmt.Sprintf("%s (%d)", s.Name, s.Visits)
		}
		fmt.Fprintf(&b, "- Top vendedores: %s\n", strings.Join(parts, ", "))
	}
	if clients, err := h.dal.ClientRollup(ctx, f, 5); err == nil && len(clients) != 0 {
		parts := make([]string, len(clients))
		for i, c := range clients {
			parts[i] = fmt.Sprintf("%s (%d)", c.POI, c.Visits)
		}
		fmt.Fprintf(&b, "- Top clientes: %s\n", strings.Join(parts, ", "))
	}
	if types, err := h.dal.VisitTypeDistribution(ctx, f); err == nil && len(types) != 0 {
		parts := make([]string, len(types))
		for i, tc := range types {
			parts[i] = fmt.Sprintf("%s (%d)", tc.Type, tc.Visits)
		}
		fmt.Fprintf(&b, "- Visitas por objetivo: %s\n", strings.Join(parts, ", "))
	}
	return b.String()
}
