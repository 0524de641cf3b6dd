package controllers

import (
	"errors"
	"io"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/styleshot/styleshot/internal/pkg/pipeline"
	"github.com/styleshot/styleshot/internal/pkg/usercontext"
)

// GenerateController serves the image-transform endpoint.
type GenerateController struct {
	pipeline *pipeline.Pipeline
	validate *validator.Validate
}

func NewGenerateController(p *pipeline.Pipeline) *GenerateController {
	return &GenerateController{
		pipeline: p,
		validate: validator.New(),
	}
}

type generateForm struct {
	Style    string `validate:"required"`
	Quality  string
	APILimit int `validate:"gte=0"`
}

// HandleGenerateImage accepts a multipart transform request and responds with
// the generated image URL.
// Fields: image (binary), style, quality (low/medium/high, default medium),
// useCache (default true), apiLimit (advisory).
func (gc *GenerateController) HandleGenerateImage(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if !user.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing credentials"})
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No image file provided"})
	}

	form := generateForm{
		Style:   c.FormValue("style"),
		Quality: c.FormValue("quality"),
	}
	if raw := c.FormValue("apiLimit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "apiLimit must be a non-negative integer"})
		}
		form.APILimit = limit
	}
	if err := gc.validate.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No style specified"})
	}
	useCache := c.FormValue("useCache") != "false" // default true

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Could not read image file"})
	}
	imageBytes, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Could not read image file"})
	}

	resp, err := gc.pipeline.Process(c.UserContext(), pipeline.Request{
		UserID:   user.UserID,
		Image:    imageBytes,
		Filename: fileHeader.Filename,
		Style:    form.Style,
		Quality:  form.Quality,
		UseCache: useCache,
		APILimit: form.APILimit,
	})
	if err != nil {
		return gc.renderError(c, err)
	}

	return c.JSON(fiber.Map{"imageUrl": resp.ImageURL})
}

func (gc *GenerateController) renderError(c *fiber.Ctx, err error) error {
	var validationErr *pipeline.ValidationError
	if errors.As(err, &validationErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationErr.Error()})
	}
	var quotaErr *pipeline.QuotaExceededError
	if errors.As(err, &quotaErr) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": quotaErr.Error()})
	}

	// Provider and store failures stay generic for the client.
	fiberlog.Errorf("generate image failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate image"})
}
