package normalizer

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/football-etl/internal/domain/record"
)

var ErrMalformedDocument = errors.New("malformed document")

// optInt decodes a JSON number, a numeric string, or null.
type optInt struct {
	value int64
	valid bool
}

func (n *optInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = optInt{}
		return nil
	}
	if data[0] == '"' {
		var unquoted string
		if err := sonic.Unmarshal(data, &unquoted); err != nil {
			return fmt.Errorf("decode integer %s: %w", data, err)
		}
		data = bytes.TrimSpace([]byte(unquoted))
		if len(data) == 0 {
			*n = optInt{}
			return nil
		}
	}
	if v, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*n = optInt{value: v, valid: true}
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || f != math.Trunc(f) {
		return fmt.Errorf("decode integer %s: not an integral number", data)
	}
	*n = optInt{value: int64(f), valid: true}
	return nil
}

func (n optInt) Value() record.Value {
	if !n.valid {
		return record.Null()
	}
	return record.Int(n.value)
}

// optText decodes a JSON string or number as text, or null.
type optText struct {
	value string
	valid bool
}

func (t *optText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = optText{}
		return nil
	}
	if data[0] == '"' {
		var unquoted string
		if err := sonic.Unmarshal(data, &unquoted); err != nil {
			return fmt.Errorf("decode text %s: %w", data, err)
		}
		*t = optText{value: unquoted, valid: true}
		return nil
	}
	*t = optText{value: string(data), valid: true}
	return nil
}

func (t optText) Value() record.Value {
	if !t.valid {
		return record.Null()
	}
	return record.String(t.value)
}

func str(v *string) record.Value { return record.StringPtr(v) }

func orEmpty[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

func decode(raw []byte, target any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: empty document", ErrMalformedDocument)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return nil
}

type area struct {
	ID   optInt  `json:"id"`
	Name *string `json:"name"`
	Code *string `json:"code"`
	Flag *string `json:"flag"`
}

type competition struct {
	ID     optInt  `json:"id"`
	Name   *string `json:"name"`
	Code   *string `json:"code"`
	Type   *string `json:"type"`
	Emblem *string `json:"emblem"`
}

type teamRef struct {
	ID        optInt  `json:"id"`
	Name      *string `json:"name"`
	ShortName *string `json:"shortName"`
	TLA       *string `json:"tla"`
	Crest     *string `json:"crest"`
}

type season struct {
	ID              optInt   `json:"id"`
	StartDate       *string  `json:"startDate"`
	EndDate         *string  `json:"endDate"`
	CurrentMatchday optInt   `json:"currentMatchday"`
	Winner          *teamRef `json:"winner"`
}

type scoreLine struct {
	Home optInt `json:"home"`
	Away optInt `json:"away"`
}

type score struct {
	Winner   *string    `json:"winner"`
	Duration *string    `json:"duration"`
	FullTime *scoreLine `json:"fullTime"`
	HalfTime *scoreLine `json:"halfTime"`
}

type person struct {
	ID          optInt  `json:"id"`
	Name        *string `json:"name"`
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	Position    *string `json:"position"`
	DateOfBirth *string `json:"dateOfBirth"`
	Nationality *string `json:"nationality"`
}

type contract struct {
	Start *string `json:"start"`
	Until *string `json:"until"`
}

type coach struct {
	person
	Contract *contract `json:"contract"`
}

type match struct {
	ID          optInt       `json:"id"`
	UTCDate     *string      `json:"utcDate"`
	Status      *string      `json:"status"`
	Stage       *string      `json:"stage"`
	Group       *string      `json:"group"`
	Area        *area        `json:"area"`
	Competition *competition `json:"competition"`
	Season      *season      `json:"season"`
	HomeTeam    *teamRef     `json:"homeTeam"`
	AwayTeam    *teamRef     `json:"awayTeam"`
	Score       *score       `json:"score"`
	Referees    []person     `json:"referees"`
}

type matchesDocument struct {
	Matches []match `json:"matches"`
}

type teamDocument struct {
	teamRef
	Area       *area    `json:"area"`
	Address    *string  `json:"address"`
	Website    *string  `json:"website"`
	Founded    optInt   `json:"founded"`
	ClubColors *string  `json:"clubColors"`
	Venue      *string  `json:"venue"`
	Coach      *coach   `json:"coach"`
	Squad      []person `json:"squad"`
}

type tableEntry struct {
	Position       optInt   `json:"position"`
	Team           *teamRef `json:"team"`
	PlayedGames    optInt   `json:"playedGames"`
	Form           *string  `json:"form"`
	Won            optInt   `json:"won"`
	Draw           optInt   `json:"draw"`
	Lost           optInt   `json:"lost"`
	Points         optInt   `json:"points"`
	GoalsFor       optInt   `json:"goalsFor"`
	GoalsAgainst   optInt   `json:"goalsAgainst"`
	GoalDifference optInt   `json:"goalDifference"`
}

type standingsBlock struct {
	Stage *string      `json:"stage"`
	Type  *string      `json:"type"`
	Group *string      `json:"group"`
	Table []tableEntry `json:"table"`
}

type standingsFilters struct {
	Season optText `json:"season"`
}

type standingsDocument struct {
	Filters     *standingsFilters `json:"filters"`
	Area        *area             `json:"area"`
	Competition *competition      `json:"competition"`
	Season      *season           `json:"season"`
	Standings   []standingsBlock  `json:"standings"`
}
