//go:build cgo
// +build cgo

package imagery

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/image/draw"
)

const inputSide = 64

// Classifier runs the EuroSAT ONNX model. It requires CGO and the
// onnxruntime shared library.
type Classifier struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	mu           sync.Mutex
}

// NewClassifier loads the model and pre-allocates the IO tensors.
func NewClassifier(modelPath string) (*Classifier, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	inputData := make([]float32, inputSide*inputSide*3)
	inputTensor, err := ort.NewTensor(ort.NewShape(1, inputSide, inputSide, 3), inputData)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	outputData := make([]float32, len(Classes))
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(Classes))), outputData)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input"},
		[]string{"output"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Classifier{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Classify decodes the thumbnail, resizes it to the model input and
// returns the predicted land-cover class.
func (c *Classifier) Classify(imageBytes []byte) (Prediction, error) {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return Prediction{}, fmt.Errorf("decode thumbnail: %w", err)
	}

	resized := image.NewRGBA(image.Rect(0, 0, inputSide, inputSide))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Over, nil)

	c.mu.Lock()
	defer c.mu.Unlock()

	data := c.inputTensor.GetData()
	i := 0
	for y := 0; y < inputSide; y++ {
		for x := 0; x < inputSide; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			data[i] = float32(r>>8) / 255.0
			data[i+1] = float32(g>>8) / 255.0
			data[i+2] = float32(b>>8) / 255.0
			i += 3
		}
	}

	if err := c.session.Run(); err != nil {
		return Prediction{}, fmt.Errorf("inference failed: %w", err)
	}

	scores := c.outputTensor.GetData()
	probs := softmax(scores)

	best := 0
	for i := range probs {
		if probs[i] > probs[best] {
			best = i
		}
	}
	byClass := make(map[string]float64, len(Classes))
	for i, name := range Classes {
		byClass[name] = probs[i]
	}
	return Prediction{
		Class:         Classes[best],
		Confidence:    probs[best],
		Probabilities: byClass,
	}, nil
}

// Close destroys the session and tensors.
func (c *Classifier) Close() error {
	var err error
	if c.session != nil {
		err = c.session.Destroy()
		c.session = nil
	}
	if c.inputTensor != nil {
		_ = c.inputTensor.Destroy()
		c.inputTensor = nil
	}
	if c.outputTensor != nil {
		_ = c.outputTensor.Destroy()
		c.outputTensor = nil
	}
	return err
}

func softmax(scores []float32) []float64 {
	max := float64(scores[0])
	for _, s := range scores[1:] {
		if float64(s) > max {
			max = float64(s)
		}
	}
	exps := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		exps[i] = math.Exp(float64(s) - max)
		sum += exps[i]
	}
	for i := range exps {
		exps[i] /= sum
	}
	return exps
}
