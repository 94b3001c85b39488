// Package yolo runs a grocery-trained YOLOv3 model locally through OpenCV.
package yolo

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"github.com/shelfscout/shelfscout-core/core/tracking"
	"gocv.io/x/gocv"
)

const (
	inputSize           = 416
	confidenceThreshold = 0.4
	nmsThreshold        = 0.4

	// Each detection head emits a raw tensor of shape (1, gridChannels,
	// gridH, gridW): three anchors per cell, each carrying four box logits,
	// an objectness logit, and 25 class logits.
	gridAnchors      = 3
	anchorChannels   = 30
	gridChannels     = gridAnchors * anchorChannels
	classesPerAnchor = anchorChannels - 5
)

// Detector runs the detection network on JPEG frames. It is safe for
// concurrent use; forward passes are serialized.
type Detector struct {
	mu           sync.Mutex
	net          gocv.Net
	outputLayers []string
	classes      []string
}

// NewDetector loads a darknet config and weights pair. The classes file is
// optional; without it the built-in grocery classes are used.
func NewDetector(configPath, weightsPath, classesPath string) (*Detector, error) {
	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("model config not found: %w", err)
	}
	if _, err := os.Stat(weightsPath); err != nil {
		return nil, fmt.Errorf("model weights not found: %w", err)
	}

	classes, err := LoadClasses(classesPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromDarknet(configPath, weightsPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load detection network")
	}
	if err := net.SetPreferableBackend(gocv.NetBackendOpenCV); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set network backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set network target: %w", err)
	}

	layerNames := net.GetLayerNames()
	var outputLayers []string
	for _, index := range net.GetUnconnectedOutLayers() {
		outputLayers = append(outputLayers, layerNames[index-1])
	}

	return &Detector{
		net:          net,
		outputLayers: outputLayers,
		classes:      classes,
	}, nil
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

type detectionCandidate struct {
	label      string
	box        tracking.BoundingBox
	confidence float32
}

// Detect runs a forward pass over the frame and returns the surviving items
// with boxes normalized to the frame dimensions.
func (d *Detector) Detect(_ context.Context, frameJPEG []byte) ([]tracking.DetectedItem, error) {
	mat, err := gocv.IMDecode(frameJPEG, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("decoded frame is empty")
	}

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(inputSize, inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	outputs := d.net.ForwardLayers(d.outputLayers)
	d.mu.Unlock()

	var candidates []detectionCandidate
	for _, output := range outputs {
		dims := output.Size()
		if len(dims) != 4 || dims[1] != gridChannels {
			continue
		}
		data, err := output.DataPtrFloat32()
		if err != nil {
			closeOutputs(outputs)
			return nil, fmt.Errorf("failed to read network output: %w", err)
		}
		candidates = append(candidates, decodeGrid(data, dims[2], dims[3], d.classes)...)
	}
	closeOutputs(outputs)

	return suppressOverlapping(candidates, mat.Cols(), mat.Rows()), nil
}

func closeOutputs(outputs []gocv.Mat) {
	for i := range outputs {
		outputs[i].Close()
	}
}

// decodeGrid turns one raw head tensor, laid out channel-major over a
// gridH by gridW grid, into candidates. The logits are activated here:
// sigmoid for the center offsets, objectness, and class scores, exp for the
// box size, with the grid stride scaling everything into the 416 input space
// before normalizing to [0,1].
func decodeGrid(data []float32, gridH, gridW int, classes []string) []detectionCandidate {
	if gridH <= 0 || gridW <= 0 || len(data) < gridChannels*gridH*gridW {
		return nil
	}
	at := func(channel, iy, ix int) float64 {
		return float64(data[(channel*gridH+iy)*gridW+ix])
	}
	strideX := float64(inputSize) / float64(gridW)
	strideY := float64(inputSize) / float64(gridH)

	var candidates []detectionCandidate
	for iy := 0; iy < gridH; iy++ {
		for ix := 0; ix < gridW; ix++ {
			for anchor := 0; anchor < gridAnchors; anchor++ {
				base := anchor * anchorChannels

				objectness := sigmoid(at(base+4, iy, ix))
				bestClass := 0
				bestScore := 0.0
				for class := 0; class < classesPerAnchor; class++ {
					if score := sigmoid(at(base+5+class, iy, ix)); score > bestScore {
						bestClass = class
						bestScore = score
					}
				}

				confidence := objectness * bestScore
				if confidence < confidenceThreshold {
					continue
				}

				centerX := (float64(ix) + sigmoid(at(base, iy, ix))) * strideX
				centerY := (float64(iy) + sigmoid(at(base+1, iy, ix))) * strideY
				width := math.Exp(at(base+2, iy, ix)) * strideX
				height := math.Exp(at(base+3, iy, ix)) * strideY

				label := fmt.Sprintf("class_%d", bestClass)
				if bestClass < len(classes) {
					label = classes[bestClass]
				}

				candidates = append(candidates, detectionCandidate{
					label: label,
					box: tracking.BoundingBox{
						X:      (centerX - width/2) / inputSize,
						Y:      (centerY - height/2) / inputSize,
						Width:  width / inputSize,
						Height: height / inputSize,
					}.Clamped(),
					confidence: float32(confidence),
				})
			}
		}
	}
	return candidates
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// suppressOverlapping drops lower-confidence candidates that overlap a kept
// one, working in the pixel space of the original frame.
func suppressOverlapping(candidates []detectionCandidate, frameWidth, frameHeight int) []tracking.DetectedItem {
	if len(candidates) == 0 {
		return nil
	}

	rects := make([]image.Rectangle, 0, len(candidates))
	scores := make([]float32, 0, len(candidates))
	for _, candidate := range candidates {
		rects = append(rects, image.Rect(
			int(candidate.box.X*float64(frameWidth)),
			int(candidate.box.Y*float64(frameHeight)),
			int((candidate.box.X+candidate.box.Width)*float64(frameWidth)),
			int((candidate.box.Y+candidate.box.Height)*float64(frameHeight)),
		))
		scores = append(scores, candidate.confidence)
	}

	items := []tracking.DetectedItem{}
	for _, index := range gocv.NMSBoxes(rects, scores, confidenceThreshold, nmsThreshold) {
		items = append(items, tracking.DetectedItem{
			Label: candidates[index].label,
			Box:   candidates[index].box,
		})
	}
	return items
}
