package extraction

// Shape is the structural classification of a document.
type Shape string

const (
	ShapeDigital    Shape = "digital"
	ShapeScanned    Shape = "scanned"
	ShapeMixed      Shape = "mixed"
	ShapeTableHeavy Shape = "table_heavy"
)

// Classification is the classifier's verdict: the document shape and the
// ordered engines to try. Derived once per document and never mutated.
type Classification struct {
	Shape Shape
	// TableHeavy can co-occur with a digital or mixed text layer.
	TableHeavy bool
	Engines    []EngineKind
}

// Classify maps structural signals onto a shape and engine order. It is a
// deterministic decision table: absence of any signal defaults to mixed with
// the full engine list, trading speed for safety.
func Classify(s Signals) Classification {
	if s.PageCount == 0 {
		return Classification{Shape: ShapeMixed, Engines: AllEngines()}
	}

	textRatio := float64(s.TextPages) / float64(s.PageCount)
	tableHeavy := s.GridStructures >= 3

	var c Classification
	switch {
	case textRatio >= 0.8 && s.ImageCoverage < 0.3:
		c = Classification{Shape: ShapeDigital, Engines: []EngineKind{EngineText, EngineTable}}
	case textRatio < 0.1:
		c = Classification{Shape: ShapeScanned, Engines: []EngineKind{EngineOCR}}
	default:
		c = Classification{Shape: ShapeMixed, Engines: []EngineKind{EngineText, EngineOCR}}
	}

	if tableHeavy {
		c.TableHeavy = true
		if c.Shape != ShapeScanned {
			c.Shape = ShapeTableHeavy
			c.Engines = prependEngine(EngineTable, c.Engines)
		}
	}
	return c
}

func prependEngine(k EngineKind, engines []EngineKind) []EngineKind {
	out := []EngineKind{k}
	for _, e := range engines {
		if e != k {
			out = append(out, e)
		}
	}
	return out
}
