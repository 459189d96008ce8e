// handlers_chat.go - Chat forwarding to agent endpoints
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sma-monitor/dashboard/internal/backend"
	"github.com/sma-monitor/dashboard/internal/config"
	"github.com/sma-monitor/dashboard/internal/models"
)

const (
	// MaxPromptLength is the longest accepted chat text, in characters.
	MaxPromptLength = 2000
	// MaxIDLength bounds conversationId and parentMessageId.
	MaxIDLength = 100

	// AssistantModel is reported on every chat envelope.
	AssistantModel = "sma-assistant-v1"
)

var promptSanitizer = strings.NewReplacer("<", "", ">", "")

// ChatHandlerImpl implements the ChatHandler interface
type ChatHandlerImpl struct {
	backend   Backend
	endpoints config.EndpointTable
	logger    *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(b Backend, endpoints config.EndpointTable, logger *slog.Logger) ChatHandler {
	return &ChatHandlerImpl{
		backend:   b,
		endpoints: endpoints,
		logger:    logger,
	}
}

// HandleAsk validates a prompt, forwards it to the named endpoint and wraps
// the answer in a chat envelope. Backend failures are reported inside a 200
// envelope with error set, so the client can render them as a chat message.
func (h *ChatHandlerImpl) HandleAsk(c echo.Context) error {
	var req askRequest
	if err := req.bind(c); err != nil {
		return err
	}

	prompt, apiErr := validateInput(req.Text, MaxPromptLength)
	if apiErr != nil {
		return apiErr
	}
	convID, parentID, apiErr := validateConversationParams(req.ConversationID, req.ParentMessageID)
	if apiErr != nil {
		return apiErr
	}

	name := c.Param("endpoint")
	endpoint, ok := h.endpoints.Lookup(name)
	if !ok {
		return NewNotFoundError("endpoint", name)
	}

	h.logger.Debug("forwarding chat message", "endpoint", name, "chars", utf8.RuneCountInString(prompt))

	body, err := h.backend.Ask(c.Request().Context(), endpoint.BaseURL, prompt)
	if err != nil {
		h.logger.Error("chat forwarding failed", "endpoint", name, "error", err)
		return c.JSON(http.StatusOK, models.ChatResponse{
			ID:              "error_" + uuid.NewString(),
			ConversationID:  convID,
			ParentMessageID: parentID,
			Role:            models.RoleAssistant,
			Content:         failureContent(err, endpoint.BaseURL),
			Error:           true,
		})
	}

	ans := backend.ParseAnswer(body)

	id := ans.MessageID
	if id == "" {
		id = "msg_" + uuid.NewString()
	}
	if convID == "" {
		convID = "conv_" + uuid.NewString()
	}

	return c.JSON(http.StatusOK, models.ChatResponse{
		ID:              id,
		ConversationID:  convID,
		ParentMessageID: parentID,
		Role:            models.RoleAssistant,
		Content:         ans.Content,
		Model:           AssistantModel,
		FinishReason:    "stop",
		Metadata: &models.MessageMetadata{
			SQLQuery:      ans.SQLQuery,
			ExecutionTime: ans.ExecutionTime,
			AffectedRows:  ans.AffectedRows,
			RawResponse:   ans.Raw,
		},
	})
}

func failureContent(err error, baseURL string) string {
	return fmt.Sprintf("Error processing the query: %v\n\n"+
		"Possible fixes:\n"+
		"- Check that the backend service is running at %s\n"+
		"- Check the network connection\n"+
		"- Check the server logs", err, baseURL)
}

// Request types

// askRequest keeps raw values so that wrongly typed fields can be reported.
type askRequest struct {
	Text            any `json:"text"`
	ConversationID  any `json:"conversationId"`
	ParentMessageID any `json:"parentMessageId"`
}

func (r *askRequest) bind(c echo.Context) error {
	err := json.NewDecoder(c.Request().Body).Decode(r)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		// not an object: leave the fields empty and let validation answer
		*r = askRequest{}
		return nil
	}
	return NewBadRequestError("invalid JSON format", err)
}

// validateInput checks that v is a non-empty string of at most maxLen
// characters and strips angle brackets from it.
func validateInput(v any, maxLen int) (string, *APIError) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", NewValidationError("input must be a non-empty string", nil)
	}
	if utf8.RuneCountInString(s) > maxLen {
		return "", NewValidationError(fmt.Sprintf("input exceeds the limit of %d characters", maxLen), nil)
	}
	return promptSanitizer.Replace(s), nil
}

// validateConversationParams accepts absent (null or empty) ids or strings of
// at most MaxIDLength characters.
func validateConversationParams(conversationID, parentMessageID any) (string, string, *APIError) {
	var problems []string

	conv, ok := optionalID(conversationID)
	if !ok {
		problems = append(problems, fmt.Sprintf("conversationId must be a valid string of at most %d characters", MaxIDLength))
	}
	parent, ok := optionalID(parentMessageID)
	if !ok {
		problems = append(problems, fmt.Sprintf("parentMessageId must be a valid string of at most %d characters", MaxIDLength))
	}

	if len(problems) > 0 {
		return "", "", NewValidationError("invalid conversation parameters", problems)
	}
	return conv, parent, nil
}

func optionalID(v any) (string, bool) {
	if v == nil {
		return "", true
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return s, utf8.RuneCountInString(s) <= MaxIDLength
}
