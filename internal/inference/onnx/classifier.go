// Package onnx runs the pretrained incident classifier through ONNX Runtime.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/geocoder89/crimewatch/internal/inference"
	ort "github.com/yalue/onnxruntime_go"
)

type Config struct {
	ModelPath   string
	InputName   string
	OutputName  string
	LibraryPath string
	InputShape  []int64
	NumClasses  int64
}

// Classifier owns one ONNX session with pre-allocated input and output tensors.
// The tensors are reused across calls, so Predict holds busy for the whole run.
// Callers waiting for busy give up when their context ends.
type Classifier struct {
	busy    chan struct{}
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

var _ inference.Classifier = (*Classifier)(nil)

// Load opens the model artifact. It fails when the file is missing or the
// runtime cannot build a session from it.
func Load(cfg Config) (*Classifier, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("model path is empty")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model artifact: %w", err)
	}

	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(cfg.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, cfg.NumClasses))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Classifier{
		busy:    make(chan struct{}, 1),
		session: session,
		input:   inputTensor,
		output:  outputTensor,
	}, nil
}

func (c *Classifier) Predict(ctx context.Context, in inference.Tensor) ([]float32, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()

	// the slot and the deadline may have become ready together
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dst := c.input.GetData()
	if len(in.Data) != len(dst) {
		return nil, fmt.Errorf("input has %d values, model expects %d", len(in.Data), len(dst))
	}
	copy(dst, in.Data)

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := c.output.GetData()
	scores := make([]float32, len(out))
	copy(scores, out)

	return scores, nil
}

func (c *Classifier) acquire(ctx context.Context) error {
	select {
	case c.busy <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Classifier) release() { <-c.busy }

func (c *Classifier) Close() {
	c.busy <- struct{}{}
	defer c.release()

	if c.session != nil {
		c.session.Destroy()
		c.session = nil
	}
	if c.input != nil {
		c.input.Destroy()
		c.input = nil
	}
	if c.output != nil {
		c.output.Destroy()
		c.output = nil
	}
	ort.DestroyEnvironment()
}
