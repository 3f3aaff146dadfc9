// Package twiml renders dialog decisions into Twilio voice response
// documents.
package twiml

import (
	"encoding/xml"
	"fmt"

	"github.com/room4-2/switchboard/dialog"
)

// GatherAction is the webhook path speech results are posted back to.
const GatherAction = "/voice/gatherresult"

// Response is a TwiML <Response> document. Verb order follows field order:
// prompts play first, then the call either gathers more speech, dials out,
// or hangs up.
type Response struct {
	XMLName  xml.Name  `xml:"Response"`
	Play     []Play    `xml:"Play,omitempty"`
	Gather   *Gather   `xml:"Gather,omitempty"`
	Dial     *Dial     `xml:"Dial,omitempty"`
	Redirect *Redirect `xml:"Redirect,omitempty"`
	Hangup   *Hangup   `xml:"Hangup,omitempty"`
}

// Play instructs the gateway to play an audio URL.
type Play struct {
	URL string `xml:",chardata"`
}

// Gather opens a speech listening window.
type Gather struct {
	Input         string `xml:"input,attr"`
	Action        string `xml:"action,attr"`
	SpeechTimeout string `xml:"speechTimeout,attr"`
	Language      string `xml:"language,attr"`
}

// Dial routes the call to another address.
type Dial struct {
	Number string `xml:",chardata"`
}

// Redirect re-enters the webhook flow when the gather window lapses with no
// speech.
type Redirect struct {
	URL string `xml:",chardata"`
}

// Hangup terminates the call.
type Hangup struct{}

// Renderer turns decisions into TwiML documents.
type Renderer struct {
	baseURL  string // Prefix prepended to prompt ids
	language string // Speech recognition language hint
}

// NewRenderer creates a renderer. baseURL should end where prompt ids begin.
func NewRenderer(baseURL, language string) *Renderer {
	return &Renderer{
		baseURL:  baseURL,
		language: language,
	}
}

// Render produces the response document for a decision. OutcomeReject has no
// document; the transport answers with an error status instead.
func (r *Renderer) Render(d dialog.Decision) ([]byte, error) {
	switch d.Outcome {
	case dialog.OutcomeContinue:
		return r.marshal(&Response{
			Play:     []Play{{URL: r.promptURL(d.Prompt)}},
			Gather:   r.gather(),
			Redirect: &Redirect{URL: GatherAction},
		})
	case dialog.OutcomeTransfer:
		return r.marshal(&Response{
			Play: []Play{{URL: r.promptURL(d.Prompt)}},
			Dial: &Dial{Number: d.TransferTo},
		})
	case dialog.OutcomeHangUp:
		return r.marshal(&Response{
			Play:   []Play{{URL: r.promptURL(d.Prompt)}},
			Hangup: &Hangup{},
		})
	default:
		return nil, fmt.Errorf("no document for outcome %s", d.Outcome)
	}
}

// Empty returns an empty response document, used to acknowledge partial
// transcripts without doing anything.
func (r *Renderer) Empty() []byte {
	doc, _ := r.marshal(&Response{})
	return doc
}

// Preload returns a document that plays every given prompt once, warming the
// gateway's media cache.
func (r *Renderer) Preload(promptIDs []string) []byte {
	plays := make([]Play, 0, len(promptIDs))
	for _, id := range promptIDs {
		plays = append(plays, Play{URL: r.promptURL(id)})
	}
	doc, _ := r.marshal(&Response{Play: plays})
	return doc
}

func (r *Renderer) gather() *Gather {
	return &Gather{
		Input:         "speech",
		Action:        GatherAction,
		SpeechTimeout: "auto",
		Language:      r.language,
	}
}

func (r *Renderer) promptURL(promptID string) string {
	return r.baseURL + promptID
}

func (r *Renderer) marshal(resp *Response) ([]byte, error) {
	body, err := xml.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal twiml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
