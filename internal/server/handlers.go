package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dataassist/internal/action"
	"dataassist/internal/assembly"
	"dataassist/internal/chat"
	"dataassist/internal/derr"
	"dataassist/internal/store"
	"dataassist/internal/types"
)

// ====== Request bodies ======

type chatRequest struct {
	ScopeKey    string              `json:"scope_key"`
	Scope       string              `json:"scope"`
	Message     string              `json:"message"`
	Task        *types.Task         `json:"task,omitempty"`
	Tasks       []types.Task        `json:"tasks,omitempty"`
	Email       *types.EmailMessage `json:"email,omitempty"`
	Workspace   string              `json:"workspace,omitempty"`
	AllowUnsafe bool                `json:"allow_unsafe,omitempty"`
}

type confirmActionRequest struct {
	TaskID string            `json:"task_id"`
	Update action.TaskUpdate `json:"update"`
}

type analyzeRequest struct {
	Emails []types.EmailMessage  `json:"emails"`
	Events []types.CalendarEvent `json:"events"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// ====== Handlers ======

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if req.ScopeKey == "" {
		req.ScopeKey = "general"
	}

	resp, err := s.chat.HandleTurn(c.Request.Context(), chat.Request{
		ScopeKey:    req.ScopeKey,
		Scope:       assembly.Scope(req.Scope),
		Message:     req.Message,
		Task:        req.Task,
		Tasks:       req.Tasks,
		Email:       req.Email,
		Workspace:   req.Workspace,
		AllowUnsafe: req.AllowUnsafe,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	chatTurnCount.WithLabelValues(string(resp.Intent), resp.Backend).Inc()
	c.JSON(http.StatusOK, resp)
}

// handleConfirmAction applies a task update the user already approved.
// The update is validated again before anything is written.
func (s *Server) handleConfirmAction(c *gin.Context) {
	if s.tasks == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no task backend configured"})
		return
	}

	var req confirmActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.TaskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task_id is required"})
		return
	}

	task, err := action.Apply(c.Request.Context(), s.tasks, req.Update, req.TaskID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	actionAppliedCount.WithLabelValues(string(req.Update.Kind)).Inc()
	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	report, err := s.analyzer.Run(c.Request.Context(), req.Emails, req.Events)
	if err != nil {
		s.writeError(c, err)
		return
	}

	for _, sug := range report.Suggestions {
		if err := s.suggestions.Save(sug); err != nil {
			s.logger.Warn("failed to persist suggestion",
				zap.String("pattern", sug.PatternValue), zap.Error(err))
		}
	}
	for _, item := range report.Attention {
		if err := s.attention.Save(item); err != nil {
			s.logger.Warn("failed to persist attention item",
				zap.String("email_id", item.EmailID), zap.Error(err))
		}
	}

	analyzerFindingsCount.WithLabelValues("suggestion").Add(float64(len(report.Suggestions)))
	analyzerFindingsCount.WithLabelValues("attention").Add(float64(len(report.Attention)))
	analyzerFindingsCount.WithLabelValues("calendar").Add(float64(len(report.Calendar)))
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleListSuggestions(c *gin.Context) {
	account := c.Query("account")
	suggestions, err := s.suggestions.ListPending(account)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (s *Server) handleSuggestionStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	if err := s.suggestions.SetStatus(c.Param("id"), req.Status); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

func (s *Server) handleListAttention(c *gin.Context) {
	account := c.Query("account")
	items, err := s.attention.ListActive(account)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attention": items})
}

func (s *Server) handleAttentionStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	if err := s.attention.SetStatus(c.Param("id"), req.Status); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

// writeError maps pipeline errors to HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	var verr *action.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case derr.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case derr.IsBackend(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
