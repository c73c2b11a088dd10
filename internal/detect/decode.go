package detect

import (
	"github.com/destenson/dsvision/internal/core"
)

// Candidate is a pre-NMS detection in letterboxed-image coordinates, before
// the class name lookup and inverse-letterbox mapping that produce a
// core.Detection.
type Candidate struct {
	ClassID    int
	Confidence float64
	BBox       core.BoundingBox
}

// rawOutput is the engine's raw per-anchor output row: (cx, cy, w, h) plus
// either an objectness score (V5) or none (V8), followed by per-class
// scores.
type rawOutput struct {
	CX, CY, W, H float64
	Objectness   float64 // V5 only; ignored for V8
	ClassScores  []float64
}

// DetectVersion infers V5 vs V8 from the per-row column count: V5 emits
// [N, 85] (box + objectness + per-class scores), V8 emits [N, 84] (box +
// per-class scores only). numClasses is the configured label count (80
// for COCO); columns is the observed row width.
func DetectVersion(columns, numClasses int) YoloVersion {
	if columns == numClasses+5 {
		return YoloV5
	}
	if columns == numClasses+4 {
		return YoloV8
	}
	return YoloAuto
}

// decodeRow picks one raw anchor row's best class and computes its
// confidence (objectness times best class score for V5, best class score
// otherwise). The box is left to the caller.
func decodeRow(row rawOutput, version YoloVersion) (classID int, confidence float64) {
	bestClass := 0
	bestScore := 0.0
	for i, s := range row.ClassScores {
		if s > bestScore {
			bestScore = s
			bestClass = i
		}
	}

	switch version {
	case YoloV5:
		return bestClass, row.Objectness * bestScore
	default: // YoloV8 and Auto default to the V8 formula
		return bestClass, bestScore
	}
}

// DecodeOutputs converts a flat list of raw anchor rows into Candidates in
// the original image's coordinate system, applying the inverse-letterbox
// transform to each box.
func DecodeOutputs(rows []rawOutput, version YoloVersion, lb LetterboxInfo) []Candidate {
	out := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		classID, confidence := decodeRow(row, version)

		left := row.CX - row.W/2
		top := row.CY - row.H/2
		origLeft, origTop, origW, origH := lb.InverseBox(left, top, row.W, row.H)

		out = append(out, Candidate{
			ClassID:    classID,
			Confidence: confidence,
			BBox:       core.BoundingBox{Left: origLeft, Top: origTop, Width: origW, Height: origH},
		})
	}
	return out
}

// ToDetections resolves class names and converts Candidates to the public
// core.Detection type.
func ToDetections(cands []Candidate, classNames []string) []core.Detection {
	out := make([]core.Detection, 0, len(cands))
	for _, c := range cands {
		out = append(out, core.Detection{
			ClassID:    c.ClassID,
			ClassName:  ClassName(classNames, c.ClassID),
			Confidence: c.Confidence,
			BBox:       c.BBox,
		})
	}
	return out
}
