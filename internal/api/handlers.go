package api

import (
	"context"
	"net/http"
	"time"

	"query-router/internal/models"

	"github.com/gin-gonic/gin"
)

type QueryRequest struct {
	Query     string               `json:"query" binding:"required,max=2000"`
	History   []models.HistoryTurn `json:"history"`
	SessionID string               `json:"sessionId" binding:"omitempty,max=128"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "request body must contain a non-empty query"})
		return
	}

	ctx := c.Request.Context()
	history := req.History
	if req.SessionID != "" && s.sessions != nil && len(history) == 0 {
		stored, err := s.sessions.Load(ctx, req.SessionID)
		if err != nil {
			s.logger.Warn("session history unavailable", map[string]interface{}{
				"sessionId": req.SessionID,
				"error":     err.Error(),
			})
		}
		history = stored
	}

	resp := s.processor.ProcessQuery(ctx, req.Query, history)

	if req.SessionID != "" && s.sessions != nil {
		err := s.sessions.Append(ctx, req.SessionID,
			models.HistoryTurn{Sender: models.SenderUser, Content: req.Query},
			models.HistoryTurn{Sender: models.SenderAssistant, Content: resp.Content},
		)
		if err != nil {
			s.logger.Warn("session history not saved", map[string]interface{}{
				"sessionId": req.SessionID,
				"error":     err.Error(),
			})
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) suggestions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"suggestions": s.processor.GetSuggestions(c.Query("category"))})
}

func (s *Server) categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": s.processor.Categories()})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.opts.Checks))
	for name, check := range s.opts.Checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	c.JSON(status, gin.H{"status": state, "checks": results})
}
