package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/phenrril/gemdeals/internal/domain"
	"github.com/phenrril/gemdeals/internal/usecase"
)

// maxUploadBytes limita el tamaño del multipart de deals.
const maxUploadBytes = 64 << 20

const exportPageSize = 500

type Server struct {
	mux     *http.ServeMux
	ingest  *usecase.IngestUC
	ranking *usecase.RankingUC
	deals   domain.DealStore
	cache   domain.Cache
	dbPing  func(ctx context.Context) error
}

func New(ingest *usecase.IngestUC, ranking *usecase.RankingUC, deals domain.DealStore, cache domain.Cache, dbPing func(ctx context.Context) error) http.Handler {
	s := &Server{
		mux:     http.NewServeMux(),
		ingest:  ingest,
		ranking: ranking,
		deals:   deals,
		cache:   cache,
		dbPing:  dbPing,
	}
	s.routes()
	return Chain(s.mux,
		RequestID,
		Recovery,
		Logging,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/deals/upload", s.handleDealsUpload)
	s.mux.HandleFunc("/api/v1/customers/top", s.handleTopCustomers)
	s.mux.HandleFunc("/api/v1/deals/export", s.handleDealsExport)
	s.mux.HandleFunc("/healthz", s.handleHealth)
}

func (s *Server) handleDealsUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, domain.CodeInternal, "method not allowed")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeFileMissing, "falta el archivo de deals")
		return
	}
	fhs := r.MultipartForm.File["deals"]
	if len(fhs) == 0 {
		writeError(w, http.StatusBadRequest, domain.CodeFileMissing, "falta el archivo de deals")
		return
	}
	f, err := fhs[0].Open()
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeFileMissing, "no se pudo abrir el archivo")
		return
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeFileWrongFormat, "no se pudo leer el archivo")
		return
	}

	count, err := s.ingest.Upload(r.Context(), content)
	if err != nil {
		writeUploadError(w, err)
		return
	}

	log.Info().Int("deals", count).Msg("deals file ingested")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleTopCustomers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, domain.CodeInternal, "method not allowed")
		return
	}

	// limit inválido o ausente cae al default configurado; no hay offset ni
	// "página siguiente": el resultado es siempre el único tope.
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	top, err := s.ranking.Top(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("top customers query failed")
		writeError(w, http.StatusInternalServerError, domain.CodeInternal, "error interno")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"response": top})
}

func (s *Server) handleDealsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, domain.CodeInternal, "method not allowed")
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := []any{"customer", "item", "total", "quantity", "date"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		writeError(w, http.StatusInternalServerError, domain.CodeInternal, "error interno")
		return
	}

	rowN := 2
	page := 1
	for {
		rows, total, err := s.deals.ListRows(r.Context(), page, exportPageSize)
		if err != nil {
			log.Error().Err(err).Msg("deals export query failed")
			writeError(w, http.StatusInternalServerError, domain.CodeInternal, "error interno")
			return
		}
		for _, d := range rows {
			cells := []any{d.Customer, d.Item, d.TotalCost.StringFixed(2), d.Quantity, d.Date.Format(time.RFC3339)}
			if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", rowN), &cells); err != nil {
				writeError(w, http.StatusInternalServerError, domain.CodeInternal, "error interno")
				return
			}
			rowN++
		}
		if len(rows) == 0 || int64(page*exportPageSize) >= total {
			break
		}
		page++
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=deals.xlsx")
	if err := f.Write(w); err != nil {
		log.Error().Err(err).Msg("deals export write failed")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := map[string]string{"cache": "ok", "db": "ok"}

	if err := s.cache.Ping(r.Context()); err != nil {
		checks["cache"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if s.dbPing != nil {
		if err := s.dbPing(r.Context()); err != nil {
			checks["db"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, checks)
}

// writeUploadError clasifica: InputError viaja con su código estable y 400,
// cualquier otra cosa se loguea y sale como internal_error genérico (el texto
// crudo del error nunca llega al cliente).
func writeUploadError(w http.ResponseWriter, err error) {
	var inputErr *domain.InputError
	if errors.As(err, &inputErr) {
		writeError(w, http.StatusBadRequest, inputErr.Code, inputErr.Detail)
		return
	}
	log.Error().Err(err).Msg("deals upload failed")
	writeError(w, http.StatusInternalServerError, domain.CodeInternal, "error interno al procesar el archivo")
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail, "code": code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
