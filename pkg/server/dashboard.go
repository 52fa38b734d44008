package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/essboard/essboard/pkg/board"
	"github.com/essboard/essboard/pkg/log"
	"github.com/essboard/essboard/pkg/storage"
	"github.com/essboard/essboard/pkg/types"
)

//go:embed web
var webFS embed.FS

var dashboardTemplate = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"level": types.HealthLevelFor,
	"num": func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	},
	"barWidth": func(m types.KeyMetric) string {
		return strconv.FormatFloat(m.BarPercent(), 'f', 1, 64) + "%"
	},
}).ParseFS(webFS, "web/dashboard.html"))

// loadingText is shown in place of the interpretation until one exists.
const loadingText = "数据解读中..."

type dashboardPage struct {
	Dashboard   types.Dashboard
	Software    []types.SoftwareGroup
	Upgrades    int
	Loading     bool
	LoadingText string
	Health      *types.HealthInterpretation
}

func newDashboardPage(d types.Dashboard, st board.State) dashboardPage {
	p := dashboardPage{
		Dashboard:   d,
		Software:    d.GroupedSoftware(),
		Upgrades:    d.PendingUpgrades(),
		Loading:     st.Loading || st.Interpretation == nil,
		LoadingText: loadingText,
	}
	if !p.Loading {
		h := st.Interpretation.Normalized()
		p.Health = &h
	}
	return p
}

func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := s.storage.GetDashboard(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get dashboard", slog.Any("error", err))
		http.Error(w, "failed to load dashboard", dashboardErrorCode(err))
		return
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, newDashboardPage(d, s.board.State())); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to render dashboard", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := buf.WriteTo(w); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := s.storage.GetDashboard(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get dashboard", slog.Any("error", err))
		writeJSONError(w, "failed to get dashboard", dashboardErrorCode(err))
		return
	}
	writeJSON(w, d)
}

func (s *Server) handleGetInterpretation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.board.State())
}

func (s *Server) handleRefreshInterpretation(w http.ResponseWriter, r *http.Request) {
	// the refresh should finish even if the caller goes away
	ctx := context.WithoutCancel(r.Context())
	st, err := s.board.Refresh(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to refresh interpretation", slog.Any("error", err))
		writeJSONError(w, fmt.Sprintf("failed to refresh interpretation: %v", err), dashboardErrorCode(err))
		return
	}
	writeJSON(w, st)
}

func dashboardErrorCode(err error) int {
	if errors.Is(err, storage.ErrDashboardNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
