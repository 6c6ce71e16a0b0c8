package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/curavault/cura/pkg/gateway"
	"github.com/curavault/cura/pkg/llm"
)

// handleChat answers POST /api/chat. Every failure, a malformed body
// included, produces the same opaque 500 so callers cannot tell a gateway
// problem from a completion problem.
func (s *Server) handleChat(c *fiber.Ctx) error {
	startTime := time.Now()

	reply, err := s.chat(c.UserContext(), c.Body())
	if err != nil {
		s.logger.Error("chat failed",
			zap.String("request_id", requestID(c)),
			zap.Error(err),
		)
		s.metrics.ObserveChat(fiber.StatusInternalServerError, time.Since(startTime))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: llm.ErrorChatFailed})
	}

	s.logger.Debug("chat reply",
		zap.String("request_id", requestID(c)),
		zap.String("reply_preview", truncate(reply, 100)),
		zap.Duration("duration", time.Since(startTime)),
	)
	s.metrics.ObserveChat(fiber.StatusOK, time.Since(startTime))

	return c.JSON(llm.ChatResponse{Reply: reply})
}

// chat runs the pipeline: fetch snippets, build the prompt, complete.
func (s *Server) chat(ctx context.Context, body []byte) (string, error) {
	var req llm.ChatRequest
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return "", fmt.Errorf("parse request: %w", err)
		}
	}

	s.logger.Debug("received chat request",
		zap.Int("message_count", len(req.Messages)),
		zap.Int("cid_count", len(req.CIDs)),
		zap.Bool("has_account", req.Account != ""),
	)

	snippets := s.fetcher.Fetch(ctx, req.CIDs)
	block := gateway.Block(snippets)

	s.logger.Debug("snippets resolved",
		zap.Int("requested", len(req.CIDs)),
		zap.Int("resolved", len(snippets)),
	)

	return s.generator.Generate(ctx, req.Messages, req.Account, block)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
