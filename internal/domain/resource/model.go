package resource

import (
	"fmt"
	"strings"

	"github.com/riskibarqy/football-etl/internal/domain/table"
)

// Kind selects how a fetched document is normalized.
type Kind string

const (
	KindMatches   Kind = "matches"
	KindTeam      Kind = "team"
	KindStandings Kind = "standings"
)

// StandingsSuffix marks resources aggregated into competition details.
const StandingsSuffix = "Standings"

// Descriptor is one named remote data set and where its rows end up.
type Descriptor struct {
	Name   string
	Path   string
	Kind   Kind
	Tables []string
}

func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("resource name is required")
	}
	if strings.TrimSpace(d.Path) == "" {
		return fmt.Errorf("resource %s: path is required", d.Name)
	}
	switch d.Kind {
	case KindMatches, KindTeam, KindStandings:
	default:
		return fmt.Errorf("resource %s: unknown kind %q", d.Name, d.Kind)
	}
	if len(d.Tables) == 0 {
		return fmt.Errorf("resource %s: at least one table is required", d.Name)
	}
	return nil
}

func (d Descriptor) IsStandings() bool {
	return strings.HasSuffix(d.Name, StandingsSuffix)
}

// CatalogConfig holds the provider ids the default catalog is built from.
type CatalogConfig struct {
	TeamID            int64
	PremierLeagueID   int64
	ChampionsLeagueID int64
}

func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		TeamID:            61,
		PremierLeagueID:   2021,
		ChampionsLeagueID: 2001,
	}
}

// DefaultCatalog lists the resources of a full run in fetch order.
func DefaultCatalog(cfg CatalogConfig) []Descriptor {
	defaults := DefaultCatalogConfig()
	if cfg.TeamID <= 0 {
		cfg.TeamID = defaults.TeamID
	}
	if cfg.PremierLeagueID <= 0 {
		cfg.PremierLeagueID = defaults.PremierLeagueID
	}
	if cfg.ChampionsLeagueID <= 0 {
		cfg.ChampionsLeagueID = defaults.ChampionsLeagueID
	}

	return []Descriptor{
		{
			Name:   "ChelseaMatches",
			Path:   fmt.Sprintf("v4/teams/%d/matches/", cfg.TeamID),
			Kind:   KindMatches,
			Tables: []string{table.ChelseaMatches},
		},
		{
			Name:   "ChelseaTeamDetails",
			Path:   fmt.Sprintf("v4/teams/%d", cfg.TeamID),
			Kind:   KindTeam,
			Tables: []string{table.ChelseaTeamDetails, table.ChelseaPlayers},
		},
		{
			Name:   "PremierLeagueStandings",
			Path:   fmt.Sprintf("v4/competitions/%d/standings", cfg.PremierLeagueID),
			Kind:   KindStandings,
			Tables: []string{table.PremierLeagueStandings},
		},
		{
			Name:   "ChampionsLeagueStandings",
			Path:   fmt.Sprintf("v4/competitions/%d/standings", cfg.ChampionsLeagueID),
			Kind:   KindStandings,
			Tables: []string{table.ChampionsLeagueStandings},
		},
	}
}
