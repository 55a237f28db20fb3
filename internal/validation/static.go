package validation

import (
	"fmt"

	"cytocv/internal/channel"
)

// StaticReader serves fixed metadata for every path. The CLI uses it to
// check a configured channel layout when no file header is available.
type StaticReader struct {
	Layers   int
	Channels map[string]int
}

// NewStaticReader builds a reader from a label → layer map. The layer count
// is one past the highest configured index.
func NewStaticReader(channels map[string]int) StaticReader {
	layers := 0
	for _, idx := range channels {
		if idx+1 > layers {
			layers = idx + 1
		}
	}
	return StaticReader{Layers: layers, Channels: channels}
}

func (s StaticReader) IsRecognized(string) bool { return true }

func (s StaticReader) LayerCount(string) (int, error) {
	if s.Layers <= 0 {
		return 0, fmt.Errorf("no layers configured")
	}
	return s.Layers, nil
}

func (s StaticReader) ChannelConfig(string) (map[string]int, error) {
	return s.Channels, nil
}

// CheckLayout validates a configured channel map against the channels the
// selected statistics need. The layer count is not enforced.
func CheckLayout(channels map[string]int, required []channel.Name) Result {
	set := make(map[channel.Name]bool, len(required))
	for _, n := range required {
		set[n] = true
	}
	opts := Options{RequiredChannels: set}
	return Validate("", opts, NewStaticReader(channels))
}
