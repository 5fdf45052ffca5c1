package rag

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Reply is the chat payload returned to clients.
type Reply struct {
	RestaurantIDs []int64 `json:"restaurant_ID"`
	Answer        string  `json:"answer"`
}

// Outcome is the parsed model reply. When Fallback is set the model did not
// follow the JSON contract and Reply was built from the retrieved rows.
type Outcome struct {
	Reply    Reply
	Fallback bool
	Raw      string
}

// StripFences removes a markdown code fence wrapped around a model reply.
func StripFences(s string) string {
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseReply decodes raw into a Reply. On failure the reply carries the first
// fallbackIDs retrieved ids and the raw text verbatim.
func ParseReply(raw string, retrieved []int64, fallbackIDs int) Outcome {
	if reply, ok := decodeReply(StripFences(raw)); ok {
		return Outcome{Reply: reply, Raw: raw}
	}

	n := fallbackIDs
	if n < 0 || n > len(retrieved) {
		n = len(retrieved)
	}
	ids := make([]int64, n)
	copy(ids, retrieved[:n])

	return Outcome{
		Reply:    Reply{RestaurantIDs: ids, Answer: raw},
		Fallback: true,
		Raw:      raw,
	}
}

func decodeReply(text string) (Reply, bool) {
	var payload struct {
		RestaurantIDs []json.RawMessage `json:"restaurant_ID"`
		Answer        *string           `json:"answer"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return Reply{}, false
	}
	if payload.Answer == nil || strings.TrimSpace(*payload.Answer) == "" {
		return Reply{}, false
	}

	ids := make([]int64, 0, len(payload.RestaurantIDs))
	for _, raw := range payload.RestaurantIDs {
		id, ok := flexibleID(raw)
		if !ok {
			return Reply{}, false
		}
		ids = append(ids, id)
	}

	return Reply{RestaurantIDs: ids, Answer: *payload.Answer}, true
}

// flexibleID accepts an integer given either as a JSON number or a numeric string.
func flexibleID(raw json.RawMessage) (int64, bool) {
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		id, err := num.Int64()
		return id, err == nil
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		id, err := strconv.ParseInt(strings.TrimSpace(str), 10, 64)
		return id, err == nil
	}

	return 0, false
}
