package inference

import (
	"context"
	"errors"
	"image/color"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	predictFn func(ctx context.Context, in Tensor) ([]float32, error)

	mu    sync.Mutex
	calls int
	last  Tensor
}

func (f *fakeClassifier) Predict(ctx context.Context, in Tensor) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.last = in
	f.mu.Unlock()

	if f.predictFn != nil {
		return f.predictFn(ctx, in)
	}
	return oneHot(len(Categories), 7, 0.9), nil
}

func (f *fakeClassifier) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRecorder struct {
	mu      sync.Mutex
	results []string
	elapsed []time.Duration
}

func (r *fakeRecorder) ObserveInference(result string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	r.elapsed = append(r.elapsed, elapsed)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGateway(c Classifier, rec Recorder, timeout time.Duration) *Gateway {
	return NewGateway(
		GatewayConfig{Timeout: timeout},
		NewNormalizer(DefaultImageSize),
		NewLabelMapper(Categories),
		c,
		discardLogger(),
		rec,
	)
}

func TestGateway_Success(t *testing.T) {
	clf := &fakeClassifier{
		predictFn: func(ctx context.Context, in Tensor) ([]float32, error) {
			v := make([]float32, len(Categories))
			v[9] = 0.732
			v[0] = 0.268
			return v, nil
		},
	}
	rec := &fakeRecorder{}
	g := newTestGateway(clf, rec, time.Second)

	p, err := g.Predict(context.Background(), encodePNG(t, gradient(50, 50)))
	require.NoError(t, err)

	assert.Equal(t, "Robbery", p.Label)
	assert.Equal(t, 9, p.Index)
	assert.Equal(t, "73.20%", p.ConfidencePercent())
	assert.Equal(t, []int64{1, 64, 64, 3}, clf.last.Shape)
	assert.Equal(t, []string{"ok"}, rec.results)
	assert.GreaterOrEqual(t, p.Elapsed, time.Duration(0))
}

func TestGateway_PreprocessingFailureSkipsModel(t *testing.T) {
	clf := &fakeClassifier{}
	rec := &fakeRecorder{}
	g := newTestGateway(clf, rec, time.Second)

	_, err := g.Predict(context.Background(), []byte("garbage"))
	require.Error(t, err)

	assert.Equal(t, KindPreprocessingFailed, KindOf(err))
	assert.True(t, errors.Is(err, ErrDecode))
	assert.Equal(t, 0, clf.Calls())
	assert.Empty(t, rec.results)
}

func TestGateway_InferenceFailures(t *testing.T) {
	tests := []struct {
		name      string
		predictFn func(ctx context.Context, in Tensor) ([]float32, error)
	}{
		{
			name: "model_error",
			predictFn: func(ctx context.Context, in Tensor) ([]float32, error) {
				return nil, errors.New("ort: run failed")
			},
		},
		{
			name: "model_panic",
			predictFn: func(ctx context.Context, in Tensor) ([]float32, error) {
				var v []float32
				_ = v[3]
				return v, nil
			},
		},
		{
			name: "empty_output",
			predictFn: func(ctx context.Context, in Tensor) ([]float32, error) {
				return []float32{}, nil
			},
		},
		{
			name: "non_finite_output",
			predictFn: func(ctx context.Context, in Tensor) ([]float32, error) {
				v := make([]float32, len(Categories))
				v[2] = float32(math.Inf(1))
				return v, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			g := newTestGateway(&fakeClassifier{predictFn: tt.predictFn}, rec, time.Second)

			_, err := g.Predict(context.Background(), encodePNG(t, gradient(16, 16)))
			require.Error(t, err)
			assert.Equal(t, KindInferenceFailed, KindOf(err))
			assert.Equal(t, []string{"failed"}, rec.results)
		})
	}
}

func TestGateway_TimeoutIsInferenceFailure(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	clf := &fakeClassifier{
		predictFn: func(ctx context.Context, in Tensor) ([]float32, error) {
			<-release
			return oneHot(len(Categories), 1, 0.5), nil
		},
	}
	g := newTestGateway(clf, nil, 20*time.Millisecond)

	start := time.Now()
	_, err := g.Predict(context.Background(), encodePNG(t, solid(8, 8, color.Black)))
	require.Error(t, err)

	assert.Equal(t, KindInferenceFailed, KindOf(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGateway_OutOfBoundsIndexDoesNotFail(t *testing.T) {
	clf := &fakeClassifier{
		predictFn: func(ctx context.Context, in Tensor) ([]float32, error) {
			v := make([]float32, len(Categories)+1)
			v[len(Categories)] = 1
			return v, nil
		},
	}
	g := newTestGateway(clf, nil, time.Second)

	p, err := g.Predict(context.Background(), encodePNG(t, gradient(16, 16)))
	require.NoError(t, err)
	assert.Equal(t, UnknownLabel, p.Label)
	assert.Equal(t, "100.00%", p.ConfidencePercent())
}

func TestGateway_PredictFileWithoutFile(t *testing.T) {
	clf := &fakeClassifier{}
	g := newTestGateway(clf, nil, time.Second)

	_, err := g.PredictFile(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, KindNoFileProvided, KindOf(err))
	assert.Equal(t, 0, clf.Calls())
}

func TestPrediction_ConfidencePercent(t *testing.T) {
	tests := []struct {
		in   float32
		want string
	}{
		{in: 0, want: "0.00%"},
		{in: 1, want: "100.00%"},
		{in: 0.8743, want: "87.43%"},
		{in: 0.5, want: "50.00%"},
		{in: 0.00004, want: "0.00%"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Prediction{Confidence: tt.in}.ConfidencePercent())
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, KindInferenceFailed, KindOf(&Error{Kind: KindInferenceFailed}))
	assert.Equal(t, "NoFileProvided", (&Error{Kind: KindNoFileProvided}).Error())
}
