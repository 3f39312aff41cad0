package normalizer

import (
	"fmt"

	"github.com/riskibarqy/football-etl/internal/domain/record"
	"github.com/riskibarqy/football-etl/internal/domain/resource"
	"github.com/riskibarqy/football-etl/internal/domain/table"
	"github.com/riskibarqy/football-etl/internal/platform/logging"
)

// Normalizer flattens football-data documents into record batches.
type Normalizer struct {
	logger *logging.Logger
}

func New(logger *logging.Logger) *Normalizer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Normalizer{logger: logger.Named("normalizer")}
}

// Normalize dispatches on the descriptor's kind. Standings documents produce
// the league table for the descriptor's first table; competition details are
// aggregated separately by CompetitionDetails.
func (n *Normalizer) Normalize(d resource.Descriptor, raw []byte) ([]*record.Batch, error) {
	var (
		batches []*record.Batch
		err     error
	)

	switch d.Kind {
	case resource.KindMatches:
		var batch *record.Batch
		batch, err = Matches(raw)
		batches = []*record.Batch{batch}
	case resource.KindTeam:
		var teamBatch, playersBatch *record.Batch
		teamBatch, playersBatch, err = Team(raw)
		batches = []*record.Batch{teamBatch, playersBatch}
	case resource.KindStandings:
		if len(d.Tables) == 0 {
			return nil, fmt.Errorf("resource %s declares no league table", d.Name)
		}
		var batch *record.Batch
		batch, err = LeagueTable(d.Tables[0], raw)
		batches = []*record.Batch{batch}
	default:
		return nil, fmt.Errorf("resource %s: unsupported document kind %q", d.Name, d.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", d.Name, err)
	}

	for _, batch := range batches {
		n.logger.Debug("normalized batch", "resource", d.Name, "table", batch.Table(), "rows", batch.Len())
	}
	return batches, nil
}

func (n *Normalizer) CompetitionDetails(docs [][]byte) (*record.Batch, error) {
	batch, err := CompetitionDetails(docs)
	if err != nil {
		return nil, fmt.Errorf("normalize competition details: %w", err)
	}
	n.logger.Debug("normalized batch", "table", batch.Table(), "rows", batch.Len())
	return batch, nil
}

// Matches emits one chelsea_matches record per element of "matches".
func Matches(raw []byte) (*record.Batch, error) {
	var doc matchesDocument
	if err := decode(raw, &doc); err != nil {
		return nil, err
	}

	batch := record.NewBatch(table.Matches())
	for _, m := range doc.Matches {
		matchArea := orEmpty(m.Area)
		comp := orEmpty(m.Competition)
		ssn := orEmpty(m.Season)
		home := orEmpty(m.HomeTeam)
		away := orEmpty(m.AwayTeam)
		sc := orEmpty(m.Score)
		fullTime := orEmpty(sc.FullTime)
		halfTime := orEmpty(sc.HalfTime)

		var referee person
		if len(m.Referees) > 0 {
			referee = m.Referees[0]
		}

		batch.Append(record.Record{
			str(matchArea.Name),
			comp.ID.Value(),
			str(comp.Name),
			ssn.ID.Value(),
			str(ssn.StartDate),
			str(ssn.EndDate),
			ssn.CurrentMatchday.Value(),
			m.ID.Value(),
			str(m.UTCDate),
			str(m.Status),
			str(m.Stage),
			str(m.Group),
			str(home.Name),
			home.ID.Value(),
			str(home.TLA),
			str(home.Crest),
			str(away.Name),
			away.ID.Value(),
			str(away.TLA),
			str(away.Crest),
			str(sc.Winner),
			str(sc.Duration),
			fullTime.Away.Value(),
			fullTime.Home.Value(),
			halfTime.Away.Value(),
			halfTime.Home.Value(),
			str(referee.Name),
			str(referee.Nationality),
		})
	}
	return batch, nil
}

// Team emits one chelsea_team_details record from the document root and one
// chelsea_players record per squad entry.
func Team(raw []byte) (*record.Batch, *record.Batch, error) {
	var doc teamDocument
	if err := decode(raw, &doc); err != nil {
		return nil, nil, err
	}

	teamArea := orEmpty(doc.Area)
	teamCoach := orEmpty(doc.Coach)
	coachContract := orEmpty(teamCoach.Contract)

	details := record.NewBatch(table.TeamDetails())
	details.Append(record.Record{
		teamArea.ID.Value(),
		str(teamArea.Name),
		str(teamArea.Code),
		str(teamArea.Flag),
		doc.ID.Value(),
		str(doc.Name),
		str(doc.ShortName),
		str(doc.TLA),
		str(doc.Crest),
		str(doc.Address),
		str(doc.Website),
		doc.Founded.Value(),
		str(doc.ClubColors),
		str(doc.Venue),
		teamCoach.ID.Value(),
		str(teamCoach.FirstName),
		str(teamCoach.LastName),
		str(teamCoach.Name),
		str(teamCoach.DateOfBirth),
		str(teamCoach.Nationality),
		str(coachContract.Start),
		str(coachContract.Until),
	})

	players := record.NewBatch(table.Players())
	for _, p := range doc.Squad {
		players.Append(record.Record{
			p.ID.Value(),
			str(p.Name),
			str(p.Position),
			str(p.DateOfBirth),
			str(p.Nationality),
		})
	}
	return details, players, nil
}

// LeagueTable emits one record per entry of the first standings block.
// A document without standings yields an empty batch.
func LeagueTable(tableName string, raw []byte) (*record.Batch, error) {
	var doc standingsDocument
	if err := decode(raw, &doc); err != nil {
		return nil, err
	}

	batch := record.NewBatch(table.LeagueTable(tableName))
	if len(doc.Standings) == 0 {
		return batch, nil
	}
	for _, entry := range doc.Standings[0].Table {
		entryTeam := orEmpty(entry.Team)
		batch.Append(record.Record{
			entry.Position.Value(),
			entryTeam.ID.Value(),
			str(entryTeam.Name),
			str(entryTeam.ShortName),
			str(entryTeam.TLA),
			str(entryTeam.Crest),
			entry.PlayedGames.Value(),
			str(entry.Form),
			entry.Won.Value(),
			entry.Draw.Value(),
			entry.Lost.Value(),
			entry.Points.Value(),
			entry.GoalsFor.Value(),
			entry.GoalsAgainst.Value(),
			entry.GoalDifference.Value(),
		})
	}
	return batch, nil
}

// CompetitionDetails emits one competition_details record per standings
// document, in the order given.
func CompetitionDetails(docs [][]byte) (*record.Batch, error) {
	batch := record.NewBatch(table.Competitions())
	for i, raw := range docs {
		var doc standingsDocument
		if err := decode(raw, &doc); err != nil {
			return nil, fmt.Errorf("document %d: %w", i+1, err)
		}

		filters := orEmpty(doc.Filters)
		docArea := orEmpty(doc.Area)
		comp := orEmpty(doc.Competition)
		ssn := orEmpty(doc.Season)

		var first standingsBlock
		if len(doc.Standings) > 0 {
			first = doc.Standings[0]
		}

		winner := record.Null()
		if ssn.Winner != nil {
			winner = str(ssn.Winner.Name)
		}

		batch.Append(record.Record{
			filters.Season.Value(),
			docArea.ID.Value(),
			str(docArea.Name),
			str(docArea.Code),
			str(docArea.Flag),
			comp.ID.Value(),
			str(comp.Name),
			str(comp.Code),
			str(comp.Type),
			str(comp.Emblem),
			ssn.ID.Value(),
			str(ssn.StartDate),
			str(ssn.EndDate),
			ssn.CurrentMatchday.Value(),
			winner,
			str(first.Stage),
			str(first.Type),
			str(first.Group),
		})
	}
	return batch, nil
}
