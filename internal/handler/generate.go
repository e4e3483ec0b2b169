package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/dualgen/api/internal/model"
	"github.com/dualgen/api/internal/registry"
	"github.com/dualgen/api/internal/service"
	"github.com/dualgen/api/internal/worker"
	"github.com/dualgen/api/pkg/response"
)

type GenerateHandler struct {
	service   *service.GenerateService
	validator *validator.Validate
}

func NewGenerateHandler(svc *service.GenerateService, v *validator.Validate) *GenerateHandler {
	return &GenerateHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/generate. Accepts JSON or multipart form data
// with an optional image file.
func (h *GenerateHandler) Generate(c *fiber.Ctx) error {
	var req model.GenerateRequest

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if err := h.parseMultipart(c, &req); err != nil {
			return response.ValidationError(c, err.Error(), nil)
		}
	} else {
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Submit(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPromptRequired):
			return response.ValidationError(c, err.Error(), nil)
		case errors.Is(err, worker.ErrQueueFull):
			return response.QueueFull(c, err.Error())
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/status/:jobId
func (h *GenerateHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.service.Status(jobID)
	if err != nil {
		if errors.Is(err, registry.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, job)
}

// Jobs handles GET /api/jobs
func (h *GenerateHandler) Jobs(c *fiber.Ctx) error {
	return response.OK(c, h.service.Jobs())
}

// Queue handles GET /api/queue
func (h *GenerateHandler) Queue(c *fiber.Ctx) error {
	return response.OK(c, h.service.Queue())
}

// Cancel handles DELETE /api/queue/:jobId
func (h *GenerateHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.Cancel(jobID)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrJobNotFound):
			return response.NotFound(c, "Job not found")
		case errors.Is(err, registry.ErrInvalidJobState):
			return response.InvalidState(c, "Can only cancel queued jobs")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Clear handles POST /api/queue/clear
func (h *GenerateHandler) Clear(c *fiber.Ctx) error {
	return response.OK(c, h.service.Clear())
}

// parseMultipart reads submission fields and an optional image file from a
// multipart form. The image is validated by magic bytes and size before
// being base64-encoded into the request.
func (h *GenerateHandler) parseMultipart(c *fiber.Ctx, req *model.GenerateRequest) error {
	req.Prompt = c.FormValue("prompt")
	req.Prompt2 = c.FormValue("prompt2")
	req.PromptMode = c.FormValue("prompt_mode")
	req.Random = parseFormBool(c.FormValue("random"))
	req.Orientation = c.FormValue("orientation")
	req.Size = c.FormValue("size")

	if v := c.FormValue("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid count: %q", v)
		}
		req.Count = n
	}
	if v := c.FormValue("steps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid steps: %q", v)
		}
		req.Steps = n
	}
	if v := c.FormValue("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seed: %q", v)
		}
		req.Seed = &n
	}
	if v := c.FormValue("strength"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid strength: %q", v)
		}
		req.Strength = f
	}

	file, err := c.FormFile("image")
	if err != nil {
		// No image attached
		return nil
	}

	if file.Size > MaxImageSize {
		return fmt.Errorf("image too large, maximum size is %dMB", MaxImageSize/(1024*1024))
	}

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	defer src.Close()

	data := make([]byte, file.Size)
	if _, err := io.ReadFull(src, data); err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	imageType := DetectImageType(data)
	if !AllowedImageTypes[imageType] {
		if imageType == "" {
			imageType = "unknown"
		}
		return fmt.Errorf("invalid image format: %s, supported: JPEG, PNG, WebP, GIF", imageType)
	}

	req.Image = base64.StdEncoding.EncodeToString(data)
	return nil
}

func parseFormBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errs := make(map[string]string)
		for _, e := range validationErrors {
			errs[e.Field()] = e.Tag()
		}
		return errs
	}
	return nil
}
