package codec

import (
	"fmt"
	"strconv"

	"github.com/dkeye/Stream/internal/domain"
	"github.com/pion/sdp/v3"
)

func itoa(n int) string { return strconv.Itoa(n) }

// ValidateOffer checks that sdpText parses and carries at least one media section.
func ValidateOffer(sdpText string) error {
	var desc sdp.SessionDescription
	if err := desc.Unmarshal([]byte(sdpText)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSDP, err)
	}
	if len(desc.MediaDescriptions) == 0 {
		return fmt.Errorf("%w: no media sections", domain.ErrInvalidSDP)
	}
	return nil
}

// ICECredentials returns the first ice-ufrag/ice-pwd pair found at session or media level.
func ICECredentials(sdpText string) (ufrag, pwd string, err error) {
	var desc sdp.SessionDescription
	if err = desc.Unmarshal([]byte(sdpText)); err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrInvalidSDP, err)
	}
	ufrag, _ = desc.Attribute("ice-ufrag")
	pwd, _ = desc.Attribute("ice-pwd")
	for _, m := range desc.MediaDescriptions {
		if ufrag == "" {
			ufrag, _ = m.Attribute("ice-ufrag")
		}
		if pwd == "" {
			pwd, _ = m.Attribute("ice-pwd")
		}
	}
	return ufrag, pwd, nil
}
