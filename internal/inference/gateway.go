package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// FileField is the multipart field carrying the uploaded image.
const FileField = "file"

const defaultTimeout = 3 * time.Second

// Classifier is the opaque pretrained model. Implementations are loaded once and
// shared by every request.
type Classifier interface {
	Predict(ctx context.Context, input Tensor) ([]float32, error)
}

// Recorder receives the outcome and elapsed time of each classifier call.
type Recorder interface {
	ObserveInference(result string, elapsed time.Duration)
}

type Prediction struct {
	Label      string
	Index      int
	Confidence float32
	Elapsed    time.Duration
}

// ConfidencePercent renders the confidence as a percentage with two decimals, e.g. "87.43%".
func (p Prediction) ConfidencePercent() string {
	return fmt.Sprintf("%.2f%%", float64(p.Confidence)*100)
}

type GatewayConfig struct {
	Timeout time.Duration
}

type Gateway struct {
	normalizer *Normalizer
	mapper     *LabelMapper
	classifier Classifier
	timeout    time.Duration
	log        *slog.Logger
	recorder   Recorder
}

func NewGateway(cfg GatewayConfig, normalizer *Normalizer, mapper *LabelMapper, classifier Classifier, log *slog.Logger, recorder Recorder) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	return &Gateway{
		normalizer: normalizer,
		mapper:     mapper,
		classifier: classifier,
		timeout:    cfg.Timeout,
		log:        log,
		recorder:   recorder,
	}
}

// PredictFile runs the whole pipeline for an uploaded file. A nil header means the
// request carried no file field.
func (g *Gateway) PredictFile(ctx context.Context, fh *multipart.FileHeader) (Prediction, error) {
	if fh == nil {
		return Prediction{}, &Error{Kind: KindNoFileProvided}
	}

	f, err := fh.Open()
	if err != nil {
		g.log.ErrorContext(ctx, "preprocessing_failed", "err", err, "filename", fh.Filename)
		return Prediction{}, &Error{Kind: KindPreprocessingFailed, Err: err}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		g.log.ErrorContext(ctx, "preprocessing_failed", "err", err, "filename", fh.Filename)
		return Prediction{}, &Error{Kind: KindPreprocessingFailed, Err: err}
	}

	return g.Predict(ctx, data)
}

// Predict normalises data, invokes the classifier and maps its output to a label.
// Any failure is terminal for the request and returned as *Error.
func (g *Gateway) Predict(ctx context.Context, data []byte) (Prediction, error) {
	start := time.Now()

	ctx, span := otel.Tracer("crimewatch/inference").Start(ctx, "inference.predict")
	defer span.End()

	input, err := g.normalizer.Normalize(data)
	if err != nil {
		g.log.ErrorContext(ctx, "preprocessing_failed", "err", err, "bytes", len(data))
		span.SetStatus(codes.Error, "preprocessing failed")
		return Prediction{}, &Error{Kind: KindPreprocessingFailed, Err: err}
	}

	scores, err := g.classify(ctx, input)
	elapsed := time.Since(start)

	if err == nil {
		err = checkScores(scores)
	}

	if err != nil {
		g.observe("failed", elapsed)
		g.log.ErrorContext(ctx, "prediction_failed", "err", err, "elapsed_ms", elapsed.Milliseconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "prediction failed")
		return Prediction{}, &Error{Kind: KindInferenceFailed, Err: err}
	}

	c := g.mapper.Map(scores)
	g.observe("ok", elapsed)
	g.log.InfoContext(ctx, "prediction_done", "label", c.Label, "index", c.Index, "elapsed_ms", elapsed.Milliseconds())
	span.SetAttributes(
		attribute.String("inference.label", c.Label),
		attribute.Float64("inference.confidence", float64(c.Confidence)),
	)

	return Prediction{
		Label:      c.Label,
		Index:      c.Index,
		Confidence: c.Confidence,
		Elapsed:    elapsed,
	}, nil
}

// classify bounds the classifier call by the gateway timeout and turns a panic
// inside the model into an error. An overrun call keeps running in the background
// until the classifier returns; classifiers are expected to stop waiting for
// their own resources once ctx ends.
func (g *Gateway) classify(ctx context.Context, input Tensor) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		scores []float32
		err    error
	}
	ch := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("classifier panic: %v", r)}
			}
		}()
		scores, err := g.classifier.Predict(ctx, input)
		ch <- result{scores: scores, err: err}
	}()

	select {
	case res := <-ch:
		return res.scores, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("classifier call: %w", ctx.Err())
	}
}

var errEmptyOutput = errors.New("classifier returned an empty output vector")

func checkScores(scores []float32) error {
	if len(scores) == 0 {
		return errEmptyOutput
	}
	for i, s := range scores {
		f := float64(s)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("classifier output %d is not finite", i)
		}
	}
	return nil
}

func (g *Gateway) observe(result string, elapsed time.Duration) {
	if g.recorder != nil {
		g.recorder.ObserveInference(result, elapsed)
	}
}
