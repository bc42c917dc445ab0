package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		signals     Signals
		wantShape   Shape
		wantEngines []EngineKind
	}{
		{
			name:        "NoSignalsDefaultsToMixed",
			signals:     Signals{},
			wantShape:   ShapeMixed,
			wantEngines: []EngineKind{EngineText, EngineTable, EngineOCR},
		},
		{
			name:        "DigitalTextLayer",
			signals:     Signals{PageCount: 10, TextPages: 10, TextChars: 12000, ImageCoverage: 0.1},
			wantShape:   ShapeDigital,
			wantEngines: []EngineKind{EngineText, EngineTable},
		},
		{
			name:        "ScannedWithoutText",
			signals:     Signals{PageCount: 6, TextPages: 0, ImageCoverage: 1},
			wantShape:   ShapeScanned,
			wantEngines: []EngineKind{EngineOCR},
		},
		{
			name:        "PartialTextIsMixed",
			signals:     Signals{PageCount: 10, TextPages: 4, TextChars: 2000, ImageCoverage: 0.6},
			wantShape:   ShapeMixed,
			wantEngines: []EngineKind{EngineText, EngineOCR},
		},
		{
			name:        "HeavyImageCoverageDemotesDigital",
			signals:     Signals{PageCount: 10, TextPages: 10, TextChars: 9000, ImageCoverage: 0.5},
			wantShape:   ShapeMixed,
			wantEngines: []EngineKind{EngineText, EngineOCR},
		},
		{
			name:        "TableHeavyDigitalLeadsWithTableEngine",
			signals:     Signals{PageCount: 4, TextPages: 4, TextChars: 6000, GridStructures: 3},
			wantShape:   ShapeTableHeavy,
			wantEngines: []EngineKind{EngineTable, EngineText},
		},
		{
			name:        "TableHeavyMixedKeepsOCR",
			signals:     Signals{PageCount: 10, TextPages: 5, TextChars: 4000, GridStructures: 5},
			wantShape:   ShapeTableHeavy,
			wantEngines: []EngineKind{EngineTable, EngineText, EngineOCR},
		},
		{
			name:        "ScannedIgnoresGridHint",
			signals:     Signals{PageCount: 6, TextPages: 0, GridStructures: 4},
			wantShape:   ShapeScanned,
			wantEngines: []EngineKind{EngineOCR},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.signals)
			assert.Equal(t, tt.wantShape, got.Shape)
			assert.Equal(t, tt.wantEngines, got.Engines)
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	s := Signals{PageCount: 10, TextPages: 5, TextChars: 4000, GridStructures: 5}
	first := Classify(s)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Classify(s))
	}
}
