package crawler

import "encoding/json"

// listingEnvelope mirrors the upstream response down to the listing array.
type listingEnvelope struct {
	Data *struct {
		List []json.RawMessage `json:"list"`
	} `json:"data"`
}

// Classify inspects a fetched body and reports whether it carries listings.
// A body whose listing array is present but empty short-circuits all
// downstream work. Classification is structural; a body that does not parse
// is passed through as a payload so the normalizer can report it with its
// category and page attached.
func Classify(body []byte) PageStatus {
	var env listingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return PageStatusPayload
	}
	if env.Data != nil && env.Data.List != nil && len(env.Data.List) == 0 {
		return PageStatusEmpty
	}
	return PageStatusPayload
}
