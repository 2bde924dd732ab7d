package batch

import (
	"encoding/json"

	"gamesort/internal/games"
)

// Result is the outcome for one input. Exactly one of Record and Err is set.
type Result struct {
	Index  int
	Input  string
	Record *games.GameRecord
	Err    *games.ItemError
}

// OK reports whether the item produced a record.
func (r Result) OK() bool {
	return r.Err == nil && r.Record != nil
}

// MarshalJSON renders the record or the item error directly.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(r.Err)
	}
	return json.Marshal(r.Record)
}

// Response is the batch outcome. Results has the same length and order as
// the request.
type Response struct {
	Results []Result `json:"results"`
	TaskID  string   `json:"task_id"`
}

// Summary counts outcomes by kind.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Negative  int `json:"negative"`
	Failed    int `json:"failed"`
	TimedOut  int `json:"timed_out"`
}

// Summary tallies the response.
func (r Response) Summary() Summary {
	s := Summary{Total: len(r.Results)}
	for _, res := range r.Results {
		switch {
		case res.Err != nil && res.Err.Kind == games.KindTimeout:
			s.TimedOut++
		case res.Err != nil:
			s.Failed++
		case res.Record != nil && res.Record.IsNegative():
			s.Negative++
		default:
			s.Succeeded++
		}
	}
	return s
}
