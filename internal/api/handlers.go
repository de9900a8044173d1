// internal/api/handlers.go
package api

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	stderrors "transaction-intake/internal/common/errors"
	"transaction-intake/internal/intake/draft"
	"transaction-intake/internal/intake/store"
	"transaction-intake/internal/intake/validation"
)

type sessionResponse struct {
	SessionID  string                 `json:"sessionId"`
	Step       int                    `json:"step"`
	StepLabel  string                 `json:"stepLabel"`
	TotalSteps int                    `json:"totalSteps"`
	Draft      draft.TransactionDraft `json:"draft"`
}

type errorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	sessionID, st, err := s.sessions.Create(c.Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(sessionState(sessionID, st))
}

func (s *Server) handleGetSession(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	st, err := s.sessions.Load(c.Context(), sessionID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(sessionState(sessionID, st))
}

func (s *Server) handleResetSession(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	st, err := s.sessions.Load(c.Context(), sessionID)
	if err != nil {
		return s.fail(c, err)
	}
	st.Reset()
	if err := s.sessions.Save(c.Context(), sessionID, st); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(sessionState(sessionID, st))
}

type setFieldRequest struct {
	Path  string      `json:"path"`
	Value interface{} `json:"value"`
}

func (s *Server) handleSetField(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	var req setFieldRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if req.Path == "" {
		return badRequest(c, "path is required")
	}

	st, err := s.sessions.Load(c.Context(), sessionID)
	if err != nil {
		return s.fail(c, err)
	}
	if err := st.SetField(req.Path, req.Value); err != nil {
		return c.Status(http.StatusUnprocessableEntity).JSON(errorBody{
			Code:    string(stderrors.ErrCodeUnknownFieldPath),
			Message: err.Error(),
		})
	}
	if err := s.sessions.Save(c.Context(), sessionID, st); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(sessionState(sessionID, st))
}

type addClientRequest struct {
	Type string `json:"type"`
}

func (s *Server) handleAddClient(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	var req addClientRequest
	_ = c.BodyParser(&req) // body optional; type only matters for dual agents

	st, err := s.sessions.Load(c.Context(), sessionID)
	if err != nil {
		return s.fail(c, err)
	}
	client := st.AddClient(draft.ClientType(req.Type))
	if err := s.sessions.Save(c.Context(), sessionID, st); err != nil {
		return s.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"client": client,
		"draft":  st.Draft(),
	})
}

func (s *Server) handleRemoveClient(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	clientID := c.Params("clientId")

	st, err := s.sessions.Load(c.Context(), sessionID)
	if err != nil {
		return s.fail(c, err)
	}
	if err := st.RemoveClient(clientID); err != nil {
		if errors.Is(err, store.ErrCannotRemoveLastClient) {
			return c.Status(http.StatusConflict).JSON(errorBody{
				Code:    string(stderrors.ErrCodeCannotRemoveLastClient),
				Message: "the last remaining client cannot be removed",
			})
		}
		return badRequest(c, err.Error())
	}
	if err := s.sessions.Save(c.Context(), sessionID, st); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(sessionState(sessionID, st))
}

type goToStepRequest struct {
	Step int `json:"step"`
}

func (s *Server) handleGoToStep(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	var req goToStepRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed request body")
	}

	st, err := s.sessions.Load(c.Context(), sessionID)
	if err != nil {
		return s.fail(c, err)
	}
	step := st.GoToStep(req.Step)
	if err := s.sessions.Save(c.Context(), sessionID, st); err != nil {
		return s.fail(c, err)
	}

	// Validation here is advisory: the response carries the step's error map
	// for display, but navigation itself is never blocked.
	return c.JSON(fiber.Map{
		"sessionId":   sessionID,
		"step":        step,
		"fieldErrors": validation.ValidateStep(step, st.Draft()),
	})
}

func (s *Server) handleValidation(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	st, err := s.sessions.Load(c.Context(), sessionID)
	if err != nil {
		return s.fail(c, err)
	}

	step := c.QueryInt("step", 0)
	if step > 0 {
		return c.JSON(fiber.Map{
			"step":        step,
			"fieldErrors": validation.ValidateStep(step, st.Draft()),
		})
	}
	return c.JSON(fiber.Map{
		"fieldErrors": validation.ValidateAll(st.Draft()),
	})
}

func (s *Server) handleSubmit(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	st, err := s.sessions.Load(c.Context(), sessionID)
	if err != nil {
		if stderrors.IsCode(err, stderrors.ErrCodeSessionNotFound) {
			s.orchestrators.Delete(sessionID)
		}
		return s.fail(c, err)
	}

	res, err := s.orchestratorFor(sessionID).Submit(c.Context(), st.Draft())
	if err != nil {
		if stderrors.IsCode(err, stderrors.ErrCodeSubmissionInProgress) {
			return c.Status(http.StatusConflict).JSON(errorBody{
				Code:    string(stderrors.ErrCodeSubmissionInProgress),
				Message: "submission already in progress",
			})
		}
		return s.fail(c, err)
	}

	if res.Success {
		// The draft is done; drop the session so a fresh wizard starts clean.
		if err := s.sessions.Delete(c.Context(), sessionID); err != nil {
			s.logger.Warn("failed to delete submitted session", map[string]interface{}{
				"sessionId": sessionID,
				"error":     err,
			})
		}
		s.orchestrators.Delete(sessionID)
		return c.JSON(res)
	}
	return c.Status(http.StatusUnprocessableEntity).JSON(res)
}

// handleGetRecord lets staff confirm a submitted record landed in the
// external store.
func (s *Server) handleGetRecord(c *fiber.Ctx) error {
	recordID := c.Params("recordId")

	fields, err := s.records.GetRecord(c.Context(), recordID)
	if err != nil {
		return c.Status(http.StatusBadGateway).JSON(errorBody{
			Code:    string(stderrors.ErrCodeRecordPersistFailed),
			Message: err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"recordId": recordID,
		"fields":   fields,
	})
}

func sessionState(sessionID string, st *store.Store) sessionResponse {
	label := ""
	if step, ok := draft.StepByID(st.Step()); ok {
		label = step.Label
	}
	return sessionResponse{
		SessionID:  sessionID,
		Step:       st.Step(),
		StepLabel:  label,
		TotalSteps: draft.TotalSteps,
		Draft:      st.Draft(),
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(http.StatusBadRequest).JSON(errorBody{
		Code:    "BAD_REQUEST",
		Message: msg,
	})
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	stdErr := stderrors.Normalize(err)
	status := http.StatusInternalServerError
	switch stdErr.Code {
	case stderrors.ErrCodeSessionNotFound:
		status = http.StatusNotFound
	case stderrors.ErrCodeSessionStoreFailed:
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]interface{}{
			"path":      c.Path(),
			"errorCode": string(stdErr.Code),
			"details":   stdErr.Details,
		})
	}
	return c.Status(status).JSON(errorBody{
		Code:    string(stdErr.Code),
		Message: stdErr.Message,
	})
}
