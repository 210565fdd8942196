// Package model implements the Scoring Model wrapper (§4.6): a loader for a
// pre-trained artifact plus a reused inference session exposing one
// method, Score, over a fixed-width feature vector.
//
// No repository in the retrieval pack carries a Go ML-inference binding
// (no ONNX runtime, no TensorFlow/gorgonia import anywhere in the pack —
// see DESIGN.md); original_source/stockrs's own
// "onnx_predictor" is itself a thin wrapper around an external runtime, so
// this package keeps that wrapper shape — load once, validate width once,
// reuse forever — while swapping the concrete artifact format for a
// self-contained linear/logistic weight vector serialized as JSON, decoded
// with encoding/json exactly the way the teacher decodes its own
// configuration and API payloads.
package model

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"daytrader/errs"
)

// Kind selects how Score's raw output is interpreted (§4.6, §4.7 admission
// rule; §8 property 8).
type Kind string

const (
	Regression     Kind = "regression"
	Classification Kind = "classification"
)

// Artifact is the on-disk representation of a trained model: an affine
// transform (weights·x + bias) optionally squashed through a sigmoid for
// classification. width must equal features.Len() at load time.
type Artifact struct {
	Kind    Kind      `json:"kind"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// Model is the reusable inference session (§4.6 "holds a single session
// and is reused across predictions"). It is safe for concurrent read-only
// use once loaded, since Score never mutates m.
type Model struct {
	kind    Kind
	weights []float64
	bias    float64
}

// Load reads and validates an Artifact from path, failing fast if its
// weight vector width does not equal wantWidth (§4.6 "input tensor width
// must equal the length of the feature-name list; a startup check fails
// fast on mismatch").
func Load(path string, wantWidth int) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.New(errs.Io, "model.Load", err)
	}
	defer f.Close()
	return loadFrom(f, wantWidth)
}

func loadFrom(r io.Reader, wantWidth int) (*Model, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, errs.New(errs.Parse, "model.Load", err)
	}
	if a.Kind != Regression && a.Kind != Classification {
		return nil, errs.New(errs.Config, "model.Load", fmt.Errorf("unknown model kind %q", a.Kind))
	}
	if len(a.Weights) != wantWidth {
		return nil, errs.New(errs.Config, "model.Load",
			fmt.Errorf("artifact width %d does not match feature vector width %d", len(a.Weights), wantWidth))
	}
	return &Model{kind: a.Kind, weights: append([]float64(nil), a.Weights...), bias: a.Bias}, nil
}

// Kind reports whether the loaded model is a regression or classification
// model, which the Prediction Stage's admission rule switches on.
func (m *Model) Kind() Kind { return m.kind }

// Score runs inference over features, which must have the same width the
// model was validated against at Load time. Any non-finite feature value
// is replaced with 0.0 before the dot product (§4.6 "Non-finite values
// from the model are replaced with 0.0 before any tensor construction" —
// generalized here to apply to inputs, since a non-finite input is what
// would otherwise produce a non-finite output).
func (m *Model) Score(features []float64) (float64, error) {
	if len(features) != len(m.weights) {
		return 0, errs.New(errs.PredictionFailed, "model.Score",
			fmt.Errorf("feature vector width %d does not match model width %d", len(features), len(m.weights)))
	}
	var sum float64
	for i, w := range m.weights {
		x := features[i]
		if math.IsNaN(x) || math.IsInf(x, 0) {
			x = 0.0
		}
		sum += w * x
	}
	sum += m.bias
	if m.kind == Classification {
		sum = 1.0 / (1.0 + math.Exp(-sum))
	}
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		sum = 0.0
	}
	return sum, nil
}
