package handlers

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/geocoder89/crimewatch/internal/inference"
	"github.com/gin-gonic/gin"
)

const (
	msgNoFile              = "No file uploaded"
	msgPreprocessingFailed = "Image preprocessing failed"
	msgPredictionFailed    = "Prediction failed"
	msgFileTooLarge        = "File too large"
)

type Predictor interface {
	PredictFile(ctx context.Context, fh *multipart.FileHeader) (inference.Prediction, error)
}

type PredictHandler struct {
	gateway Predictor
	log     *slog.Logger
}

func NewPredictHandler(gateway Predictor, log *slog.Logger) *PredictHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PredictHandler{gateway: gateway, log: log}
}

// Predict classifies the image uploaded under the "file" field. Its response
// bodies are flat {"error": "..."} objects, unlike the rest of the API.
func (h *PredictHandler) Predict(ctx *gin.Context) {
	fh, err := ctx.FormFile(inference.FileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": msgFileTooLarge})
			return
		}
		// any other failure to read the field counts as no file
		fh = nil
	}

	p, err := h.gateway.PredictFile(ctx.Request.Context(), fh)
	if err != nil {
		switch inference.KindOf(err) {
		case inference.KindNoFileProvided:
			ctx.JSON(http.StatusBadRequest, gin.H{"error": msgNoFile})
		case inference.KindPreprocessingFailed:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": msgPreprocessingFailed})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": msgPredictionFailed})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"prediction": p.Label,
		"confidence": p.ConfidencePercent(),
	})
}
