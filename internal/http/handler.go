package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nurpe/lab-review/internal/documents"
	"github.com/nurpe/lab-review/internal/excel"
	"github.com/nurpe/lab-review/internal/gateway"
	"github.com/nurpe/lab-review/internal/http/middleware"
	"github.com/nurpe/lab-review/internal/model"
	"github.com/nurpe/lab-review/internal/review"
)

const maxUploadSize = 32 << 20

type PDFGenerator interface {
	Generate(session review.Session) ([]byte, error)
}

type ExcelGenerator interface {
	Generate(page model.ContractPage) ([]byte, error)
}

// AuditReader reads the decision journal. It is nil when no database is
// configured.
type AuditReader interface {
	ListByContract(ctx context.Context, contractID model.ID, limit int) ([]model.DecisionRecord, error)
}

type Handler struct {
	reviews   *review.Controller
	documents *documents.Exchange
	pdf       PDFGenerator
	excel     ExcelGenerator
	audit     AuditReader
	listLimit int
	log       zerolog.Logger
}

type Dependencies struct {
	Reviews   *review.Controller
	Documents *documents.Exchange
	PDF       PDFGenerator
	Excel     ExcelGenerator
	Audit     AuditReader
	ListLimit int
}

func NewHandler(deps Dependencies, log zerolog.Logger) *Handler {
	limit := deps.ListLimit
	if limit <= 0 {
		limit = review.DefaultLimit
	}
	return &Handler{
		reviews:   deps.Reviews,
		documents: deps.Documents,
		pdf:       deps.PDF,
		excel:     deps.Excel,
		audit:     deps.Audit,
		listLimit: limit,
		log:       log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	protected := router.Group("/")
	protected.Use(authMiddleware)
	protected.GET("/contracts", h.listContracts)
	protected.GET("/contracts/export", h.exportContracts)
	protected.GET("/contracts/:id/review", h.openReview)
	protected.GET("/contracts/:id/review/pdf", h.reviewPDF)
	protected.GET("/contracts/:id/decisions", h.listDecisions)
	protected.GET("/contracts/:id/activity", h.activity)
	protected.POST("/contracts/:id/review/accept", middleware.RequireRole(model.Principal.CanDecide), h.decide(model.DecisionAccept))
	protected.POST("/contracts/:id/review/reject", middleware.RequireRole(model.Principal.CanDecide), h.decide(model.DecisionReject))
	protected.POST("/contracts/:id/result", middleware.RequireRole(model.Principal.CanUpload), h.uploadResult)
	protected.GET("/contracts/:id/qrcode", h.download(documents.KindContractQR))
	protected.GET("/contracts/:id/pdf", h.download(documents.KindContractPDF))
	protected.GET("/appointments/:id/qrcode", h.download(documents.KindAppointmentQR))
	protected.GET("/documents/:id/pdf", h.download(documents.KindResultPDF))
}

func (h *Handler) listContracts(c *gin.Context) {
	query, ok := h.parseListQuery(c)
	if !ok {
		return
	}
	page, err := h.reviews.Lister().List(c.Request.Context(), query)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) exportContracts(c *gin.Context) {
	query, ok := h.parseListQuery(c)
	if !ok {
		return
	}
	page, err := h.reviews.Lister().List(c.Request.Context(), query)
	if err != nil {
		h.handleError(c, err)
		return
	}
	content, err := h.excel.Generate(*page)
	if err != nil {
		h.handleError(c, err)
		return
	}

	const xlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	fileName := excel.FileName(page.Stage, page.Page, time.Now())
	c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	c.Data(http.StatusOK, xlsx, content)
}

func (h *Handler) openReview(c *gin.Context) {
	contractID, ok := parseID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.reviews.Open(c.Request.Context(), contractID))
}

func (h *Handler) reviewPDF(c *gin.Context) {
	contractID, ok := parseID(c)
	if !ok {
		return
	}
	session := h.reviews.Open(c.Request.Context(), contractID)
	content, err := h.pdf.Generate(session)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\"review_"+contractID.String()+".pdf\"")
	c.Data(http.StatusOK, "application/pdf", content)
}

func (h *Handler) listDecisions(c *gin.Context) {
	contractID, ok := parseID(c)
	if !ok {
		return
	}
	if h.audit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "decision journal is disabled"})
		return
	}
	records, err := h.audit.ListByContract(c.Request.Context(), contractID, 50)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": records})
}

// activity reports which transfers and submissions are running for a row so
// clients can disable the matching buttons.
func (h *Handler) activity(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	downloads := make(map[documents.Kind]bool, 4)
	for _, kind := range []documents.Kind{
		documents.KindContractQR,
		documents.KindAppointmentQR,
		documents.KindContractPDF,
		documents.KindResultPDF,
	} {
		downloads[kind] = h.documents.Downloading(kind, id)
	}
	c.JSON(http.StatusOK, gin.H{
		"submitting":  h.reviews.Submitting(id),
		"uploading":   h.documents.Uploading(id),
		"downloading": downloads,
	})
}

type decisionRequest struct {
	Comments string `json:"comments"`
}

func (h *Handler) decide(decision model.Decision) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
			return
		}
		contractID, ok := parseID(c)
		if !ok {
			return
		}

		var req decisionRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := h.reviews.Decide(c.Request.Context(), principal, review.DecideInput{
			ContractID: contractID,
			Decision:   decision,
			Comments:   req.Comments,
		})
		if err != nil {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (h *Handler) uploadResult(c *gin.Context) {
	contractID, ok := parseID(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}

	err = h.documents.Upload(c.Request.Context(), contractID, documents.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "uploaded"})
}

func (h *Handler) download(kind documents.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		saver := documents.SaverFunc(func(_ context.Context, data []byte, fileName, mimeType string) error {
			c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
			c.Data(http.StatusOK, mimeType, data)
			return nil
		})
		_, err := h.documents.Download(c.Request.Context(), documents.DownloadRequest{
			Kind:   kind,
			ID:     id,
			Number: c.Query("number"),
		}, saver)
		if err != nil {
			h.handleError(c, err)
		}
	}
}

func (h *Handler) parseListQuery(c *gin.Context) (review.Query, bool) {
	stage, err := review.ParseStage(c.Query("stage"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stage"})
		return review.Query{}, false
	}
	page, err := optionalInt(c.Query("page"), 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return review.Query{}, false
	}
	limit, err := optionalInt(c.Query("limit"), h.listLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return review.Query{}, false
	}
	return review.Query{
		Stage:  stage,
		Page:   page,
		Limit:  limit,
		Search: c.Query("search"),
	}, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var rejected *review.RejectedError
	var apiErr *gateway.APIError
	switch {
	case errors.As(err, &rejected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": rejected.Error()})
	case errors.Is(err, review.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, review.ErrInProgress), errors.Is(err, documents.ErrInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, review.ErrInvalidInput),
		errors.Is(err, review.ErrCommentRequired),
		errors.Is(err, review.ErrNoActionableTask),
		errors.Is(err, review.ErrNoResult),
		errors.Is(err, review.ErrAlreadyRejected),
		errors.Is(err, documents.ErrNotPDF),
		errors.Is(err, documents.ErrEmptyFile),
		errors.Is(err, documents.ErrInvalidID),
		errors.Is(err, documents.ErrUnknownKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, documents.ErrUploadFailed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, gateway.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "remote api unavailable"})
	case errors.As(err, &apiErr):
		h.log.Warn().Err(err).Int("upstream_status", apiErr.StatusCode).Msg("remote api error")
		message := apiErr.Message
		if message == "" {
			message = "remote api error"
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": message})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseID(c *gin.Context) (model.ID, bool) {
	id, err := model.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func optionalInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, review.ErrInvalidInput
	}
	return value, nil
}
