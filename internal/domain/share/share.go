// Package share encodes a picking session into a compact URL-safe token and
// back.
package share

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Version is the only payload version Decode accepts.
const Version = 1

// Payload is the portable part of a session.
type Payload struct {
	Rounds        int
	ChampionIndex int
	Scores        map[int]int
}

type wire struct {
	V             int            `json:"v"`
	Rounds        int            `json:"rounds"`
	ChampionIndex int            `json:"championIndex"`
	Scores        map[string]int `json:"scores"`
}

// Encode returns the unpadded base64url JSON form of p.
func Encode(p Payload) string {
	w := wire{V: Version, Rounds: p.Rounds, ChampionIndex: p.ChampionIndex, Scores: make(map[string]int, len(p.Scores))}
	for idx, wins := range p.Scores {
		w.Scores[strconv.Itoa(idx)] = wins
	}
	b, err := json.Marshal(w)
	if err != nil {
		// wire holds only ints and a string-keyed map
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode parses a token produced by Encode. A leading "s=" or "#s=" is
// accepted, as is padded input. Anything malformed yields ok == false.
func Decode(token string) (Payload, bool) {
	token = strings.TrimSpace(token)
	token = strings.TrimPrefix(token, "#")
	token = strings.TrimPrefix(token, "s=")
	token = strings.TrimRight(token, "=")
	if token == "" {
		return Payload{}, false
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Payload{}, false
	}

	var probe struct {
		V             *int            `json:"v"`
		Rounds        json.RawMessage `json:"rounds"`
		ChampionIndex int             `json:"championIndex"`
		Scores        map[string]int  `json:"scores"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Payload{}, false
	}
	if probe.V == nil || *probe.V != Version {
		return Payload{}, false
	}
	rounds, err := strconv.Atoi(string(probe.Rounds))
	if err != nil {
		return Payload{}, false
	}

	p := Payload{Rounds: rounds, ChampionIndex: probe.ChampionIndex, Scores: make(map[int]int, len(probe.Scores))}
	for k, wins := range probe.Scores {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return Payload{}, false
		}
		p.Scores[idx] = wins
	}
	return p, true
}
