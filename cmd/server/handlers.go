package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/idhash"
	"portfolio-risk-lab/internal/observability"
	"portfolio-risk-lab/internal/risk"
	"portfolio-risk-lab/internal/sentiment"
	"portfolio-risk-lab/internal/storage"
)

// Server holds the HTTP API dependencies.
type Server struct {
	stores    *allStores
	engine    *risk.Engine
	sentiment sentiment.Source
	logger    *log.Logger
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("POST /api/v1/portfolios", s.handleCreatePortfolio)
	mux.HandleFunc("GET /api/v1/portfolios", s.handleListPortfolios)
	mux.HandleFunc("GET /api/v1/portfolios/{id}", s.handleGetPortfolio)
	mux.HandleFunc("PUT /api/v1/portfolios/{id}", s.handleUpdatePortfolio)
	mux.HandleFunc("DELETE /api/v1/portfolios/{id}", s.handleDeletePortfolio)

	mux.HandleFunc("POST /api/v1/portfolios/{id}/risk", s.handleRunRiskAnalysis)
	mux.HandleFunc("GET /api/v1/portfolios/{id}/risk/latest", s.handleLatestRiskAnalysis)
	mux.HandleFunc("GET /api/v1/portfolios/{id}/risk/history", s.handleRiskHistory)
	mux.HandleFunc("GET /api/v1/risk/compare", s.handleCompareRisk)

	mux.HandleFunc("POST /api/v1/sentiment", s.handleAnalyzeSentiment)
	mux.HandleFunc("GET /api/v1/sentiment/{symbol}", s.handleSentimentHistory)

	mux.HandleFunc("POST /api/v1/stocks", s.handleCreateStock)
	mux.HandleFunc("GET /api/v1/stocks", s.handleSearchStocks)
	mux.HandleFunc("GET /api/v1/stocks/{symbol}", s.handleGetStock)
	mux.HandleFunc("GET /api/v1/sectors", s.handleListSectors)

	return mux
}

type holdingPayload struct {
	Symbol string  `json:"symbol"`
	Value  float64 `json:"value"`
	Sector string  `json:"sector"`
}

type portfolioPayload struct {
	PortfolioID string           `json:"portfolio_id,omitempty"`
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	OwnerID     string           `json:"owner_id"`
	Holdings    []holdingPayload `json:"holdings"`
	CreatedAt   int64            `json:"created_at,omitempty"`
	UpdatedAt   int64            `json:"updated_at,omitempty"`
}

func toDomainHoldings(payload []holdingPayload) []domain.Holding {
	holdings := make([]domain.Holding, len(payload))
	for i, h := range payload {
		holdings[i] = domain.Holding{Symbol: h.Symbol, Value: h.Value, Sector: h.Sector}
	}
	return holdings
}

func toPortfolioPayload(p *domain.Portfolio) portfolioPayload {
	holdings := make([]holdingPayload, len(p.Holdings))
	for i, h := range p.Holdings {
		holdings[i] = holdingPayload{Symbol: h.Symbol, Value: h.Value, Sector: h.Sector}
	}
	return portfolioPayload{
		PortfolioID: p.PortfolioID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		Holdings:    holdings,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (s *Server) handleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var payload portfolioPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.Name == "" || payload.OwnerID == "" {
		s.writeError(w, http.StatusBadRequest, "name and owner_id are required")
		return
	}

	now := time.Now().UnixMilli()
	p := &domain.Portfolio{
		PortfolioID: idhash.ComputePortfolioID(payload.OwnerID, payload.Name, now),
		Name:        payload.Name,
		Description: payload.Description,
		OwnerID:     payload.OwnerID,
		Holdings:    toDomainHoldings(payload.Holdings),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.stores.portfolioStore.Insert(r.Context(), p); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toPortfolioPayload(p))
}

func (s *Server) handleListPortfolios(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		s.writeError(w, http.StatusBadRequest, "owner_id query parameter is required")
		return
	}

	portfolios, err := s.stores.portfolioStore.GetByOwner(r.Context(), ownerID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	payload := make([]portfolioPayload, len(portfolios))
	for i, p := range portfolios {
		payload[i] = toPortfolioPayload(p)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := s.stores.portfolioStore.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPortfolioPayload(p))
}

func (s *Server) handleUpdatePortfolio(w http.ResponseWriter, r *http.Request) {
	var payload portfolioPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.Name == "" {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	p := &domain.Portfolio{
		PortfolioID: r.PathValue("id"),
		Name:        payload.Name,
		Description: payload.Description,
		Holdings:    toDomainHoldings(payload.Holdings),
		UpdatedAt:   time.Now().UnixMilli(),
	}
	if err := s.stores.portfolioStore.Update(r.Context(), p); err != nil {
		s.writeStoreError(w, err)
		return
	}

	updated, err := s.stores.portfolioStore.GetByID(r.Context(), p.PortfolioID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPortfolioPayload(updated))
}

func (s *Server) handleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	if err := s.stores.portfolioStore.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type riskAnalysisPayload struct {
	AnalysisID           string   `json:"analysis_id"`
	PortfolioID          string   `json:"portfolio_id"`
	MeanReturn           float64  `json:"mean_return"`
	Volatility           float64  `json:"volatility"`
	VaR95                float64  `json:"var_95"`
	VaR99                float64  `json:"var_99"`
	WorstCase            float64  `json:"worst_case"`
	BestCase             float64  `json:"best_case"`
	Beta                 float64  `json:"beta"`
	SharpeRatio          *float64 `json:"sharpe_ratio"` // null when not finite
	DiversificationScore float64  `json:"diversification_score"`
	Trials               int      `json:"trials"`
	HorizonDays          int      `json:"horizon_days"`
	AnalyzedAt           int64    `json:"analyzed_at"`
}

func toRiskAnalysisPayload(r *domain.RiskAnalysisRecord) riskAnalysisPayload {
	return riskAnalysisPayload{
		AnalysisID:           r.AnalysisID,
		PortfolioID:          r.PortfolioID,
		MeanReturn:           r.Metrics.MeanReturn,
		Volatility:           r.Metrics.Volatility,
		VaR95:                r.Metrics.VaR95,
		VaR99:                r.Metrics.VaR99,
		WorstCase:            r.Metrics.WorstCase,
		BestCase:             r.Metrics.BestCase,
		Beta:                 r.Metrics.Beta,
		SharpeRatio:          domain.FiniteOrNil(r.Metrics.SharpeRatio),
		DiversificationScore: r.Metrics.DiversificationScore,
		Trials:               r.Trials,
		HorizonDays:          r.HorizonDays,
		AnalyzedAt:           r.AnalyzedAt,
	}
}

func (s *Server) handleRunRiskAnalysis(w http.ResponseWriter, r *http.Request) {
	portfolioID := r.PathValue("id")
	p, err := s.stores.portfolioStore.GetByID(r.Context(), portfolioID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	metrics, err := s.engine.CalculateRiskMetrics(r.Context(), p.Holdings)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	now := time.Now().UnixMilli()
	trials, horizonDays := s.engine.Defaults()
	record := &domain.RiskAnalysisRecord{
		AnalysisID:  idhash.ComputeAnalysisID(portfolioID, trials, horizonDays, now),
		PortfolioID: portfolioID,
		Metrics:     *metrics,
		Trials:      trials,
		HorizonDays: horizonDays,
		AnalyzedAt:  now,
	}
	if err := s.stores.analysisStore.Insert(r.Context(), record); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toRiskAnalysisPayload(record))
}

func (s *Server) handleLatestRiskAnalysis(w http.ResponseWriter, r *http.Request) {
	record, err := s.stores.analysisStore.GetLatest(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toRiskAnalysisPayload(record))
}

func (s *Server) handleRiskHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.stores.analysisStore.GetByPortfolio(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	payload := make([]riskAnalysisPayload, len(records))
	for i, record := range records {
		payload[i] = toRiskAnalysisPayload(record)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

type riskComparisonEntry struct {
	PortfolioName string   `json:"portfolio_name"`
	Volatility    float64  `json:"volatility"`
	SharpeRatio   *float64 `json:"sharpe_ratio"`
	VaR95         float64  `json:"var_95"`
	AnalyzedAt    int64    `json:"analyzed_at"`
}

// handleCompareRisk returns the latest analysis of each named portfolio,
// keyed by portfolio ID. Portfolios without an analysis yet are skipped.
func (s *Server) handleCompareRisk(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, raw := range r.URL.Query()["portfolio_ids"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) < 2 {
		s.writeError(w, http.StatusBadRequest, "portfolio_ids must name at least two portfolios")
		return
	}

	result := make(map[string]riskComparisonEntry)
	for _, id := range ids {
		p, err := s.stores.portfolioStore.GetByID(r.Context(), id)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		record, err := s.stores.analysisStore.GetLatest(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		result[id] = riskComparisonEntry{
			PortfolioName: p.Name,
			Volatility:    record.Metrics.Volatility,
			SharpeRatio:   domain.FiniteOrNil(record.Metrics.SharpeRatio),
			VaR95:         record.Metrics.VaR95,
			AnalyzedAt:    record.AnalyzedAt,
		}
	}
	if len(result) == 0 {
		s.writeError(w, http.StatusNotFound, "no risk analyses found for the given portfolios")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type sentimentRequest struct {
	Symbol string `json:"symbol"`
	Text   string `json:"text"`
}

type sentimentPayload struct {
	RecordID   string  `json:"record_id"`
	Symbol     string  `json:"symbol"`
	Source     string  `json:"source"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Label      string  `json:"label"`
	Snippet    string  `json:"snippet"`
	AnalyzedAt int64   `json:"analyzed_at"`
}

func toSentimentPayload(r *domain.SentimentRecord) sentimentPayload {
	return sentimentPayload{
		RecordID:   r.RecordID,
		Symbol:     r.Symbol,
		Source:     r.Source,
		Score:      r.Score,
		Confidence: r.Confidence,
		Label:      r.Label,
		Snippet:    r.Snippet,
		AnalyzedAt: r.AnalyzedAt,
	}
}

func (s *Server) handleAnalyzeSentiment(w http.ResponseWriter, r *http.Request) {
	var req sentimentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	record, err := s.sentiment.Analyze(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, sentiment.ErrEmptyText) {
			s.writeError(w, http.StatusBadRequest, "text is required")
			return
		}
		s.logger.Printf("sentiment analysis failed: %v", err)
		s.writeError(w, http.StatusBadGateway, "sentiment analysis failed")
		return
	}

	record.Symbol = req.Symbol
	record.AnalyzedAt = time.Now().UnixMilli()
	record.RecordID = idhash.ComputeSentimentRecordID(record.Symbol, record.Source, record.AnalyzedAt, record.Snippet)

	if err := s.stores.sentimentStore.Insert(r.Context(), record); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSentimentPayload(record))
}

func (s *Server) handleSentimentHistory(w http.ResponseWriter, r *http.Request) {
	since := int64(0)
	if v := r.URL.Query().Get("since"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "since must be a millisecond timestamp")
			return
		}
		since = parsed
	}

	records, err := s.stores.sentimentStore.GetBySymbolSince(r.Context(), r.PathValue("symbol"), since)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	payload := make([]sentimentPayload, len(records))
	for i, record := range records {
		payload[i] = toSentimentPayload(record)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

type stockPayload struct {
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	Sector       *string  `json:"sector,omitempty"`
	Industry     *string  `json:"industry,omitempty"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
	LastUpdated  *int64   `json:"last_updated,omitempty"`
	CreatedAt    int64    `json:"created_at,omitempty"`
}

func toStockPayload(st *domain.Stock) stockPayload {
	return stockPayload{
		Symbol:       st.Symbol,
		Name:         st.Name,
		Sector:       st.Sector,
		Industry:     st.Industry,
		CurrentPrice: st.CurrentPrice,
		LastUpdated:  st.LastUpdated,
		CreatedAt:    st.CreatedAt,
	}
}

func (s *Server) handleCreateStock(w http.ResponseWriter, r *http.Request) {
	var payload stockPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.Symbol == "" || payload.Name == "" {
		s.writeError(w, http.StatusBadRequest, "symbol and name are required")
		return
	}

	st := &domain.Stock{
		Symbol:       payload.Symbol,
		Name:         payload.Name,
		Sector:       payload.Sector,
		Industry:     payload.Industry,
		CurrentPrice: payload.CurrentPrice,
		LastUpdated:  payload.LastUpdated,
		CreatedAt:    time.Now().UnixMilli(),
	}
	if err := s.stores.stockStore.Insert(r.Context(), st); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toStockPayload(st))
}

func (s *Server) handleGetStock(w http.ResponseWriter, r *http.Request) {
	st, err := s.stores.stockStore.GetBySymbol(r.Context(), r.PathValue("symbol"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toStockPayload(st))
}

func (s *Server) handleSearchStocks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	stocks, err := s.stores.stockStore.Search(r.Context(), query, limit)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	payload := make([]stockPayload, len(stocks))
	for i, st := range stocks {
		payload[i] = toStockPayload(st)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleListSectors(w http.ResponseWriter, r *http.Request) {
	sectors, err := s.stores.stockStore.ListSectors(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if sectors == nil {
		sectors = []string{}
	}
	s.writeJSON(w, http.StatusOK, sectors)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	// Encode before writing the status line so an encoding failure can
	// still surface as a 500 instead of a truncated 200.
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Printf("encode response: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		s.logger.Printf("write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError maps storage sentinel errors to HTTP statuses.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrDuplicateKey):
		s.writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, storage.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, "invalid input")
	default:
		s.logger.Printf("storage error: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeEngineError maps risk engine errors to HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, risk.ErrInvalidPortfolio):
		s.writeError(w, http.StatusBadRequest, "portfolio has no valid holdings")
	case errors.Is(err, risk.ErrInsufficientData), errors.Is(err, risk.ErrDegenerateSeries):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Printf("risk analysis failed: %v", err)
		s.writeError(w, http.StatusBadGateway, "risk analysis failed")
	}
}
