// dialtest drives a running voice server through a scripted call: one answer
// event followed by each argument as a spoken transcript. Useful for manual
// end-to-end checks without a telephony gateway.
package main

import (
	"flag"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "voice server base URL")
	callID := flag.String("call", "", "call id (random when empty)")
	from := flag.String("from", "+15550100000", "caller number")
	flag.Parse()

	if *callID == "" {
		*callID = "dialtest-" + uuid.New().String()
	}

	log.Printf("📞 Starting call %s from %s", *callID, *from)
	post(*addr+"/voice/answer", url.Values{
		"CallSid": {*callID},
		"From":    {*from},
	})

	for _, utterance := range flag.Args() {
		log.Printf("🎤 Saying: %s", utterance)
		post(*addr+"/voice/gatherresult", url.Values{
			"CallSid":      {*callID},
			"SpeechResult": {utterance},
		})
	}
}

func post(endpoint string, form url.Values) {
	resp, err := http.Post(endpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}
	log.Printf("⬅️ %d\n%s", resp.StatusCode, string(body))
}
