package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wnsgho/legal-full/internal/core/analyzer"
	"github.com/wnsgho/legal-full/internal/core/model"
	"github.com/wnsgho/legal-full/internal/core/session"
	"github.com/wnsgho/legal-full/internal/driver"
	"github.com/wnsgho/legal-full/internal/llm"
)

// Server wires the analysis core to its HTTP surface. Transport stays thin:
// every semantic lives in the core packages.
type Server struct {
	Orchestrator *session.Orchestrator
	Retriever    analyzer.HybridRetriever
	Graph        driver.GraphStore
	Governor     *llm.Governor
	TopNDefault  int
	log          *zap.Logger
}

func NewServer(orch *session.Orchestrator, retriever analyzer.HybridRetriever, graph driver.GraphStore, governor *llm.Governor, topNDefault int, log *zap.Logger) *Server {
	return &Server{
		Orchestrator: orch,
		Retriever:    retriever,
		Graph:        graph,
		Governor:     governor,
		TopNDefault:  topNDefault,
		log:          log,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/health", s.Health)

	api := r.Group("/api")
	{
		risk := api.Group("/risk-analysis")
		risk.POST("/start", s.StartAnalysis)
		risk.GET("/saved", s.ListSaved)
		risk.GET("/:id/status", s.GetStatus)
		risk.GET("/:id/part/:part", s.GetPart)
		risk.GET("/:id/report", s.GetReport)
		risk.POST("/:id/cancel", s.Cancel)

		api.POST("/chat/hybrid-retrieve", s.HybridRetrieve)

		graph := api.Group("/graph")
		graph.GET("/databases", s.ListDatabases)
		graph.GET("/stats", s.GraphStats)
	}

	return r
}

type StartAnalysisRequest struct {
	ContractID    string `json:"contract_id" binding:"required"`
	ContractText  string `json:"contract_text"`
	ContractName  string `json:"contract_name"`
	SelectedParts []int  `json:"selected_parts"`
	Backend       string `json:"backend"`
}

func (s *Server) StartAnalysis(c *gin.Context) {
	var req StartAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	backend := session.BackendHybrid
	if req.Backend != "" {
		backend = session.Backend(req.Backend)
	}

	id, err := s.Orchestrator.StartAnalysis(session.StartRequest{
		ContractID:    req.ContractID,
		ContractName:  req.ContractName,
		ContractText:  req.ContractText,
		SelectedParts: req.SelectedParts,
		Backend:       backend,
	})
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"analysis_id": id})
}

func (s *Server) GetStatus(c *gin.Context) {
	status, err := s.Orchestrator.GetStatus(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) GetPart(c *gin.Context) {
	partNumber, err := strconv.Atoi(c.Param("part"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid part number"})
		return
	}
	result, err := s.Orchestrator.GetPart(c.Param("id"), partNumber)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) GetReport(c *gin.Context) {
	report, err := s.Orchestrator.GetReport(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) ListSaved(c *gin.Context) {
	summaries, err := s.Orchestrator.ListSaved()
	if err != nil {
		s.renderError(c, err)
		return
	}
	if summaries == nil {
		summaries = []model.SessionSummary{}
	}
	c.JSON(http.StatusOK, summaries)
}

func (s *Server) Cancel(c *gin.Context) {
	if err := s.Orchestrator.Cancel(c.Param("id")); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type HybridRetrieveRequest struct {
	Query string `json:"query" binding:"required"`
	TopN  int    `json:"top_n"`
}

func (s *Server) HybridRetrieve(c *gin.Context) {
	var req HybridRetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	topN := req.TopN
	if topN <= 0 {
		topN = s.TopNDefault
	}

	result, err := s.Retriever.HybridRetrieve(c.Request.Context(), req.Query, topN)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"llm":    s.Governor.Usage(),
	})
}

func (s *Server) ListDatabases(c *gin.Context) {
	names, err := s.Graph.ListDatabases(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"databases": names})
}

func (s *Server) GraphStats(c *gin.Context) {
	stats, err := s.Graph.Stats(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// renderError maps the core taxonomy onto HTTP statuses.
func (s *Server) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrBadInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrStoreUnavailable), errors.Is(err, model.ErrRetrievalUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
