package capture

import (
	"context"
	"sync"
	"time"

	"github.com/pkordes/carless/internal/domain"
	"github.com/pkordes/carless/internal/geo"
)

// Accuracy is the precision a location source is asked to deliver.
type Accuracy string

const (
	AccuracyFine   Accuracy = "fine"
	AccuracyCoarse Accuracy = "coarse"
	AccuracyLeast  Accuracy = "least"
)

// ActivityProfile tells a location source what kind of movement to expect.
type ActivityProfile string

const (
	ProfileFitness    ActivityProfile = "fitness"
	ProfileNavigation ActivityProfile = "navigation"
	ProfileOther      ActivityProfile = "other"
)

// Hints are passed to LocationService.Start.
type Hints struct {
	Accuracy Accuracy        `json:"accuracy"`
	Profile  ActivityProfile `json:"profile"`
}

// HintsFor picks the location hints for a mode of transportation.
func HintsFor(mode domain.Mode) Hints {
	switch mode {
	case domain.ModeBicycle, domain.ModeWalk:
		return Hints{Accuracy: AccuracyFine, Profile: ProfileFitness}
	case domain.ModeBus, domain.ModeRideshare:
		return Hints{Accuracy: AccuracyCoarse, Profile: ProfileNavigation}
	default:
		return Hints{Accuracy: AccuracyLeast, Profile: ProfileOther}
	}
}

// Sample is one reading from a location source.
type Sample struct {
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	Altitude           float64   `json:"altitude"`
	HorizontalAccuracy float64   `json:"horizontal_accuracy"`
	VerticalAccuracy   float64   `json:"vertical_accuracy"`
	Speed              float64   `json:"speed"`
	Course             float64   `json:"course"`
	Timestamp          time.Time `json:"timestamp"`
}

// Point returns the sample's coordinate.
func (s Sample) Point() geo.Point { return geo.Point{Latitude: s.Latitude, Longitude: s.Longitude} }

// LocationService is the platform location provider. Authorization must be
// requested before Start; samples are delivered to the flow's OnLocation.
type LocationService interface {
	RequestAuthorization(ctx context.Context) (bool, error)
	Start(hints Hints) error
	Stop()
}

// PushSource is a LocationService fed by a remote client: the client reports
// whether the user granted location access and then pushes samples over HTTP
// or a websocket. It only records state; the registry routes samples.
type PushSource struct {
	mu         sync.Mutex
	authorized bool
	active     bool
	hints      Hints
}

// NewPushSource returns a source whose authorization answer is authorized.
func NewPushSource(authorized bool) *PushSource {
	return &PushSource{authorized: authorized}
}

func (p *PushSource) RequestAuthorization(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.authorized, nil
}

func (p *PushSource) Start(hints Hints) error {
	p.mu.Lock()
	p.active, p.hints = true, hints
	p.mu.Unlock()
	return nil
}

func (p *PushSource) Stop() {
	p.mu.Lock()
	p.active = false
	p.mu.Unlock()
}

// Active reports whether samples are currently wanted.
func (p *PushSource) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Hints returns the hints passed to the last Start.
func (p *PushSource) Hints() Hints {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hints
}
