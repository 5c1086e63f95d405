package domain

// Candidate is one ICE candidate line together with the media line it belongs to.
type Candidate struct {
	Candidate     string `json:"candidate"`
	SDPMLineIndex uint16 `json:"sdpMLineIndex"`
}

// Answer is the body returned for a served offer.
type Answer struct {
	Type       string      `json:"type"`
	SDP        string      `json:"sdp"`
	Candidates []Candidate `json:"candidates"`
}

func NewAnswer(sdp string, candidates []Candidate) Answer {
	if candidates == nil {
		candidates = []Candidate{}
	}
	return Answer{Type: "answer", SDP: sdp, Candidates: candidates}
}
