package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	dbmodels "costlens/internal/models"
	"costlens/pkg/models"
	"costlens/pkg/normalize"
	"costlens/pkg/response"
)

// CreateImport uploads and persists one billing export
// @Summary Import a billing CSV
// @Description Loads, normalizes and stores a CSV export. The provider hint is optional; the schema is detected when it is omitted.
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV export"
// @Param provider formData string false "Provider hint" Enums(AWS, OCI, AZURE, GENERIC)
// @Success 201 {object} models.ImportResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse "File already imported"
// @Failure 413 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /imports [post]
func (h *HandlerService) CreateImport(c *gin.Context) {
	limit := int64(h.maxUploadMB()) << 20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	header, err := c.FormFile("file")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || (err == nil && header.Size > limit) {
		HandleError(c, NewAPIError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File exceeds %d MB", h.maxUploadMB()), err))
		return
	}
	if err != nil {
		HandleError(c, NewBadRequestError("Missing file field", err))
		return
	}

	f, err := header.Open()
	if err != nil {
		HandleError(c, NewBadRequestError("Unreadable upload", err))
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		HandleError(c, NewBadRequestError("Unreadable upload", err))
		return
	}

	hint := normalize.ParseProvider(c.PostForm("provider"))
	result, err := h.svc.Import(c.Request.Context(), header.Filename, content, hint, dbmodels.SourceUpload)
	if err != nil {
		HandleError(c, err)
		return
	}
	response.Created(c, result)
}

func (h *HandlerService) maxUploadMB() int {
	if h.config.Server == nil || h.config.Server.MaxUploadMB <= 0 {
		return 50
	}
	return h.config.Server.MaxUploadMB
}

// ListImports lists stored imports
// @Summary List imports
// @Tags Imports
// @Produce json
// @Success 200 {object} models.ImportListResponse
// @Router /imports [get]
func (h *HandlerService) ListImports(c *gin.Context) {
	imports, err := h.svc.ListImports(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	response.List(c, imports, len(imports))
}

// GetImport returns the metadata of one import
// @Summary Get import
// @Tags Imports
// @Produce json
// @Param id path int true "Import ID"
// @Success 200 {object} dbmodels.FileImport
// @Failure 404 {object} models.ErrorResponse
// @Router /imports/{id} [get]
func (h *HandlerService) GetImport(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		HandleError(c, err)
		return
	}
	imp, err := h.svc.GetImport(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	response.OK(c, imp)
}

// DeleteImport removes an import and its rows
// @Summary Delete import
// @Tags Imports
// @Produce json
// @Param id path int true "Import ID"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /imports/{id} [delete]
func (h *HandlerService) DeleteImport(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		HandleError(c, err)
		return
	}
	if err := h.svc.DeleteImport(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}
	response.OK(c, models.MessageResponse{Message: fmt.Sprintf("import %d deleted", id)})
}

// ImportFromBucket imports every CSV of the configured bucket
// @Summary Import from object storage
// @Description Imports every CSV under the configured prefix. Files imported before are skipped.
// @Tags Imports
// @Accept json
// @Produce json
// @Param request body models.BucketImportRequest false "Provider hint"
// @Success 200 {object} service.BucketImportResult
// @Failure 503 {object} models.ErrorResponse "Object storage disabled"
// @Router /objectstore/import [post]
func (h *HandlerService) ImportFromBucket(c *gin.Context) {
	var req models.BucketImportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, NewBadRequestError("Invalid request body", err))
			return
		}
	}
	if req.Provider == "" && h.config.ObjectStore != nil {
		req.Provider = h.config.ObjectStore.Provider
	}

	result, err := h.svc.ImportBucket(c.Request.Context(), normalize.ParseProvider(req.Provider))
	if err != nil {
		HandleError(c, err)
		return
	}
	response.OK(c, result)
}
