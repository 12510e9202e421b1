package camera

import (
	"time"

	"github.com/google/uuid"

	"go.viam.com/cutout/rimage"
)

// FlashMode is the flash setting of a capture.
type FlashMode int

// The flash modes.
const (
	FlashModeOff FlashMode = iota
	FlashModeOn
	FlashModeAuto
)

// QualityPrioritization trades capture latency for image quality.
type QualityPrioritization int

// The prioritizations, in increasing order of quality.
const (
	QualitySpeed QualityPrioritization = iota + 1
	QualityBalanced
	QualityQuality
)

func (q QualityPrioritization) String() string {
	switch q {
	case QualitySpeed:
		return "speed"
	case QualityBalanced:
		return "balanced"
	case QualityQuality:
		return "quality"
	default:
		return "unknown"
	}
}

// MatteType names an auxiliary matte.
type MatteType string

// The matte types. Portrait is the portrait-effects matte; the rest are semantic segmentation
// mattes.
const (
	MattePortrait MatteType = "portrait"
	MatteHair     MatteType = "hair"
	MatteSkin     MatteType = "skin"
	MatteTeeth    MatteType = "teeth"
	MatteGlasses  MatteType = "glasses"
)

// SemanticMatteTypes are every semantic segmentation matte type.
var SemanticMatteTypes = []MatteType{MatteHair, MatteSkin, MatteTeeth, MatteGlasses}

// PhotoFeatures are the auxiliary delivery features of a photo output.
type PhotoFeatures struct {
	DepthDelivery  bool
	LivePhoto      bool
	PortraitMatte  bool
	SemanticMattes []MatteType
	MaxQuality     QualityPrioritization
}

// Location is where a photo was taken.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

// PhotoSettings are the settings of one capture request. ID is unique per request and is only
// valid for one capture.
type PhotoSettings struct {
	ID                    uuid.UUID
	Codec                 string
	FlashMode             FlashMode
	QualityPrioritization QualityPrioritization
	DepthDelivery         bool
	PortraitMatte         bool
	SemanticMattes        []MatteType
	Location              *Location
}

// ResolvedSettings are what the hardware decided to do for a request.
type ResolvedSettings struct {
	ID             uuid.UUID
	Width, Height  int
	FlashEnabled   bool
	ProcessingTime time.Duration
}

// DepthData is a depth map in meters, as delivered by hardware, in sensor orientation.
type DepthData struct {
	Width, Height int
	Meters        []float32
}

// Matte is an encoded auxiliary matte in sensor orientation.
type Matte struct {
	Type     MatteType
	Data     []byte
	MimeType string
}

// Photo is the hardware's delivery for a finished photo. Data is nil when the primary image is
// missing.
type Photo struct {
	Data           []byte
	MimeType       string
	Orientation    rimage.Orientation
	Depth          *DepthData
	PortraitMatte  *Matte
	SemanticMattes []Matte
}

// PhotoCaptureDelegate receives the hardware callbacks of one capture, in order: WillBeginCapture,
// WillCapturePhoto, DidFinishProcessingPhoto, DidFinishCapture. On failure the hardware may skip
// straight to DidFinishCapture.
type PhotoCaptureDelegate interface {
	WillBeginCapture(resolved ResolvedSettings)
	WillCapturePhoto(resolved ResolvedSettings)
	DidFinishProcessingPhoto(photo *Photo, err error)
	DidFinishCapture(resolved ResolvedSettings, err error)
}

// PhotoOutput is the platform's still photo output.
type PhotoOutput interface {
	// Supported returns the features the hardware advertises for the current input.
	Supported() PhotoFeatures
	// Enabled returns the features currently enabled. Removing an input from the session resets
	// them.
	Enabled() PhotoFeatures
	// SetEnabled enables features. Unsupported features are ignored.
	SetEnabled(f PhotoFeatures)
	Codecs() []string
	CapturePhoto(settings PhotoSettings, delegate PhotoCaptureDelegate)
}
