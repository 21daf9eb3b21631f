package metrics

import (
	"fmt"
	"math"

	"github.com/san-kum/dcmsim/internal/dynamo"
)

// HeadroomFactor scales the dataset maximum so the tallest bar stops short of
// the chart top.
const HeadroomFactor = 1.1

// Bar is one raw comparison value.
type Bar struct {
	Label string  `json:"label" yaml:"label"`
	Value float64 `json:"value" yaml:"value"`
}

// Dataset is a registered comparison table. Reference is the distinguished
// series; Baselines are drawn after it in order.
type Dataset struct {
	Key       string `json:"key" yaml:"key"`
	Title     string `json:"title" yaml:"title"`
	Source    string `json:"source" yaml:"source"`
	Reference Bar    `json:"reference" yaml:"reference"`
	Baselines []Bar  `json:"baselines" yaml:"baselines"`
}

func (d Dataset) validate() error {
	if d.Key == "" {
		return dynamo.NewConfigError("metrics", "", fmt.Errorf("%w: empty dataset key", dynamo.ErrInvalidValue))
	}
	if len(d.Baselines) == 0 {
		return dynamo.NewConfigError("metrics", d.Key, fmt.Errorf("%w: no baselines", dynamo.ErrInvalidValue))
	}
	for _, b := range append([]Bar{d.Reference}, d.Baselines...) {
		if b.Label == "" || b.Value <= 0 || math.IsNaN(b.Value) || math.IsInf(b.Value, 0) {
			return dynamo.NewConfigError("metrics", d.Key, fmt.Errorf("%w: bar %q=%v", dynamo.ErrInvalidValue, b.Label, b.Value))
		}
	}
	return nil
}

// Max is the largest raw value across the reference and every baseline.
func (d Dataset) Max() float64 {
	m := d.Reference.Value
	for _, b := range d.Baselines {
		m = math.Max(m, b.Value)
	}
	return m
}

// Scale is the denominator every bar is divided by.
func (d Dataset) Scale() float64 { return HeadroomFactor * d.Max() }

// PaperDatasets are the average FID scores from Table 1 of the DCM paper.
// Lower is better.
func PaperDatasets() []Dataset {
	return []Dataset{
		{
			Key:       "mnist",
			Title:     "MNIST",
			Source:    "Table 1 (Split MNIST)",
			Reference: Bar{Label: "DCM", Value: 28.57},
			Baselines: []Bar{{"LTS", 71.67}, {"R-DDPM", 63.26}, {"CGKD", 54.34}},
		},
		{
			Key:       "cifar10",
			Title:     "CIFAR10",
			Source:    "Table 1 (Split CIFAR10)",
			Reference: Bar{Label: "DCM", Value: 76.58},
			Baselines: []Bar{{"LTS", 124.22}, {"R-DDPM", 106.18}, {"CGKD", 115.38}},
		},
	}
}
