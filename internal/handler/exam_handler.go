package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/backend"
	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/repository"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/result"
	"github.com/stemsi/exam-portal/internal/validator"
)

// ExamFetcher loads an exam from the school API.
type ExamFetcher interface {
	FetchExam(ctx context.Context, examID model.ID, req model.RequesterContext) (*model.Exam, error)
}

// EventLister lists the attempt journal of an exam.
type EventLister interface {
	ListByExam(ctx context.Context, examID model.ID, f repository.AttemptEventFilter) ([]model.AttemptEvent, int, error)
}

// ExamHandler serves the read-only exam screens and the attempt journal.
type ExamHandler struct {
	exams  ExamFetcher
	events EventLister
	log    zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(exams ExamFetcher, events EventLister, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		exams:  exams,
		events: events,
		log:    log.With().Str("component", "exam_handler").Logger(),
	}
}

// GetExam godoc
// GET /api/v1/exams/:exam_id
// Returns the exam detail with parsed answer options.
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}
	exam, ok := h.fetch(c, examID)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, result.BuildExamView(exam, h.log))
}

// GetResult godoc
// GET /api/v1/student/exams/:exam_id/result
// Returns the graded result of the calling student.
func (h *ExamHandler) GetResult(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}
	exam, ok := h.fetch(c, examID)
	if !ok {
		return
	}

	view := result.BuildExamView(exam, h.log)
	if view.Score == nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoResult)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// ListEvents godoc
// GET /api/v1/exams/:exam_id/events?student_id=&kind=&page=&per_page=
// Returns the attempt journal of an exam.
func (h *ExamHandler) ListEvents(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}
	var q model.AttemptEventQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PerPage == 0 {
		q.PerPage = 50
	}

	events, total, err := h.events.ListByExam(c.Request.Context(), examID, repository.AttemptEventFilter{
		StudentID: model.ID(q.StudentID),
		Kind:      model.AttemptEventKind(q.Kind),
		Page:      q.Page,
		PerPage:   q.PerPage,
	})
	if err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("List events error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, events, &response.Pagination{
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalItems: total,
		TotalPages: (total + q.PerPage - 1) / q.PerPage,
	})
}

func (h *ExamHandler) fetch(c *gin.Context, examID model.ID) (*model.Exam, bool) {
	identity := middleware.GetIdentity(c)
	req := model.RequesterContext{Role: identity.Role}
	if identity.Role == model.RoleStudent {
		req.StudentID = model.ID(identity.ID)
	}

	exam, err := h.exams.FetchExam(c.Request.Context(), examID, req)
	if err != nil {
		failBackend(c, h.log, err)
		return nil, false
	}
	return exam, true
}

func examIDParam(c *gin.Context) (model.ID, bool) {
	id := strings.TrimSpace(c.Param("exam_id"))
	if id == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return "", false
	}
	return model.ID(id), true
}

// failBackend maps a school API failure onto the response envelope, keeping
// the upstream message.
func failBackend(c *gin.Context, log zerolog.Logger, err error) {
	if backend.IsNotFound(err) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	var be *backend.Error
	if errors.As(err, &be) {
		response.FailWithMessage(c, http.StatusBadGateway, response.ErrExamUnavailable, be.Message)
		return
	}
	log.Error().Err(err).Msg("School API error")
	response.Fail(c, http.StatusBadGateway, response.ErrBackendUnavailable)
}
