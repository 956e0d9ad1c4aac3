package eval

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Verdict is the judge's decision for one reply.
type Verdict struct {
	Pass          bool     `json:"pass"`
	RedFlagsFound []string `json:"redFlagsFound"`
	Reason        string   `json:"reason"`
}

const parseErrorPrefix = "evaluation parse error: "

// ParseErrorVerdict is the verdict recorded when the judge output cannot be decoded.
// It always fails.
func ParseErrorVerdict(err error) Verdict {
	return Verdict{
		Pass:          false,
		RedFlagsFound: []string{},
		Reason:        parseErrorPrefix + err.Error(),
	}
}

var errNoJSONObject = errors.New("no JSON object found in judge output")

// DecodeVerdict extracts the first well-formed JSON object from free-form judge
// output and decodes it as a verdict. Surrounding prose and markdown fences are
// tolerated; truncated or otherwise malformed JSON is an error. The object must
// carry a boolean "pass".
func DecodeVerdict(text string) (Verdict, error) {
	raw, err := firstJSONObject(text)
	if err != nil {
		return Verdict{}, err
	}

	var v struct {
		Pass          *bool    `json:"pass"`
		RedFlagsFound []string `json:"redFlagsFound"`
		Reason        string   `json:"reason"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	if v.Pass == nil {
		return Verdict{}, errors.New(`verdict is missing the "pass" field`)
	}

	out := Verdict{
		Pass:          *v.Pass,
		RedFlagsFound: v.RedFlagsFound,
		Reason:        strings.TrimSpace(v.Reason),
	}
	if out.RedFlagsFound == nil {
		out.RedFlagsFound = []string{}
	}
	return out, nil
}

// firstJSONObject returns the first complete JSON object that starts at one of
// the '{' characters in text.
func firstJSONObject(text string) (json.RawMessage, error) {
	var lastErr error
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}

		var raw json.RawMessage
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		if err := dec.Decode(&raw); err != nil {
			lastErr = err
			continue
		}
		return raw, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", errNoJSONObject, lastErr)
	}
	return nil, errNoJSONObject
}

// ScanRedFlags returns the red flags that literally occur in reply, ignoring case
// and runs of whitespace. It is a diagnostic only; the judge decides the verdict.
func ScanRedFlags(reply string, redFlags []string) []string {
	normalized := normalizeText(reply)

	var found []string
	for _, flag := range redFlags {
		f := normalizeText(flag)
		if f == "" {
			continue
		}
		if strings.Contains(normalized, f) {
			found = append(found, flag)
		}
	}
	return found
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
