package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/identification"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// DefaultMaxImageBytes is the largest accepted upload.
const DefaultMaxImageBytes = 10 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Scanner runs the identification pipeline.
type Scanner interface {
	Identify(ctx context.Context, image []byte, contentType string) (models.Candidate, error)
	Scan(ctx context.Context, req identification.Request) (*identification.Result, error)
}

// ScanHandler handles image identification requests
type ScanHandler struct {
	scanner       Scanner
	maxImageBytes int64
	logger        ectologger.Logger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(scanner Scanner, maxImageBytes int64, logger ectologger.Logger) *ScanHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	return &ScanHandler{
		scanner:       scanner,
		maxImageBytes: maxImageBytes,
		logger:        logger,
	}
}

// SpeciesResponse is the identify-only result
type SpeciesResponse struct {
	Name       string  `json:"name"`
	Sci        string  `json:"sci"`
	Confidence float64 `json:"confidence"`
}

func NewSpeciesResponse(candidate models.Candidate) SpeciesResponse {
	return SpeciesResponse{
		Name:       candidate.CommonName,
		Sci:        candidate.ScientificName,
		Confidence: math.Round(candidate.ConfidencePercent*10) / 10,
	}
}

// RegisterRoutes registers the scan routes. The group is expected to resolve
// an optional bearer.
func (h *ScanHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/scan", h.Scan)
	g.POST("/species", h.Species)
}

// Scan handles POST /api/scan
func (h *ScanHandler) Scan(c echo.Context) error {
	ctx := c.Request().Context()

	image, contentType, err := h.readImage(c)
	if err != nil {
		return err
	}

	result, err := h.scanner.Scan(ctx, identification.Request{
		Image:       image,
		ContentType: contentType,
		Lat:         utils.ParseOptionalFloat(c.FormValue("lat")),
		Lng:         utils.ParseOptionalFloat(c.FormValue("lng")),
		UserID:      OptionalUserID(c),
	})
	if err != nil {
		return unprocessable(err)
	}

	return SuccessResponse(c, result)
}

// Species handles POST /api/species
func (h *ScanHandler) Species(c echo.Context) error {
	ctx := c.Request().Context()

	image, contentType, err := h.readImage(c)
	if err != nil {
		return err
	}

	candidate, err := h.scanner.Identify(ctx, image, contentType)
	if err != nil {
		return unprocessable(err)
	}

	return SuccessResponse(c, NewSpeciesResponse(candidate))
}

// readImage validates the multipart "image" part: type first, then size.
func (h *ScanHandler) readImage(c echo.Context) ([]byte, string, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return nil, "", BadRequest("An image file is required.")
	}

	contentType, _, err := mime.ParseMediaType(file.Header.Get(echo.HeaderContentType))
	if err != nil || !allowedImageTypes[strings.ToLower(contentType)] {
		return nil, "", httperror.NewHTTPError(http.StatusUnsupportedMediaType, "Use JPEG, PNG, or WebP.")
	}
	contentType = strings.ToLower(contentType)

	if file.Size > h.maxImageBytes {
		return nil, "", tooLarge(h.maxImageBytes)
	}

	src, err := file.Open()
	if err != nil {
		return nil, "", BadRequest("The image could not be read.")
	}
	defer src.Close()

	image, err := io.ReadAll(io.LimitReader(src, h.maxImageBytes+1))
	if err != nil {
		return nil, "", BadRequest("The image could not be read.")
	}
	if int64(len(image)) > h.maxImageBytes {
		return nil, "", tooLarge(h.maxImageBytes)
	}

	return image, contentType, nil
}

func tooLarge(limit int64) error {
	return httperror.NewHTTPErrorf(http.StatusRequestEntityTooLarge, "Image must be under %d MB.", limit>>20)
}

func unprocessable(err error) error {
	if errors.Is(err, identification.ErrUnprocessableImage) {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return httperror.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("Could not process image: %v", err))
}
