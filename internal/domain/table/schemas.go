package table

import "github.com/riskibarqy/football-etl/internal/domain/record"

const (
	ChelseaMatches           = "chelsea_matches"
	ChelseaTeamDetails       = "chelsea_team_details"
	ChelseaPlayers           = "chelsea_players"
	CompetitionDetails       = "competition_details"
	PremierLeagueStandings   = "premier_league_standings"
	ChampionsLeagueStandings = "champions_league_standings"
)

// LoadOrder is the fixed order tables are truncated and refilled in.
var LoadOrder = []string{
	ChampionsLeagueStandings,
	PremierLeagueStandings,
	ChelseaMatches,
	ChelseaPlayers,
	CompetitionDetails,
	ChelseaTeamDetails,
}

func Matches() record.Schema {
	return record.Schema{
		Table: ChelseaMatches,
		Columns: []record.Column{
			record.Text("area_name"),
			record.Integer("competition_id"),
			record.Text("competition_name"),
			record.Integer("season_id"),
			record.Text("season_startdate"),
			record.Text("season_enddate"),
			record.Integer("current_matchday"),
			record.Integer("match_id"),
			record.Text("match_date"),
			record.Text("status"),
			record.Text("stage"),
			record.Text("comp_group"),
			record.Text("home_team_name"),
			record.Integer("home_team_id"),
			record.Text("home_team_tla"),
			record.Text("home_team_crest"),
			record.Text("away_team_name"),
			record.Integer("away_team_id"),
			record.Text("away_team_tla"),
			record.Text("away_team_crest"),
			record.Text("winner"),
			record.Text("duration"),
			record.Integer("fulltime_away"),
			record.Integer("fulltime_home"),
			record.Integer("halftime_away"),
			record.Integer("halftime_home"),
			record.Text("referee_name"),
			record.Text("referee_nationality"),
		},
	}
}

func TeamDetails() record.Schema {
	return record.Schema{
		Table: ChelseaTeamDetails,
		Columns: []record.Column{
			record.Integer("area_id"),
			record.Text("area_name"),
			record.Text("area_code"),
			record.Text("area_flag"),
			record.Integer("team_id"),
			record.Text("team_name"),
			record.Text("team_shortname"),
			record.Text("team_tla"),
			record.Text("team_crest"),
			record.Text("address"),
			record.Text("website"),
			record.Integer("founded"),
			record.Text("club_colors"),
			record.Text("venue"),
			record.Integer("coach_id"),
			record.Text("coach_firstname"),
			record.Text("coach_lastname"),
			record.Text("coach_name"),
			record.Text("coach_dob"),
			record.Text("coach_nationality"),
			record.Text("coach_contract_start"),
			record.Text("coach_contract_until"),
		},
	}
}

func Players() record.Schema {
	return record.Schema{
		Table: ChelseaPlayers,
		Columns: []record.Column{
			record.Integer("player_id"),
			record.Text("player_name"),
			record.Text("player_position"),
			record.Text("player_dob"),
			record.Text("player_nationality"),
		},
	}
}

func Competitions() record.Schema {
	return record.Schema{
		Table: CompetitionDetails,
		Columns: []record.Column{
			record.Text("season"),
			record.Integer("area_id"),
			record.Text("area_name"),
			record.Text("area_code"),
			record.Text("area_flag"),
			record.Integer("competition_id"),
			record.Text("competition_name"),
			record.Text("competition_code"),
			record.Text("competition_type"),
			record.Text("competition_emblem"),
			record.Integer("season_id"),
			record.Text("season_startdate"),
			record.Text("season_enddate"),
			record.Integer("current_matchday"),
			record.Text("season_winner"),
			record.Text("stage"),
			record.Text("standings_type"),
			record.Text("comp_group"),
		},
	}
}

// LeagueTable is shared by every per-competition standings table.
func LeagueTable(name string) record.Schema {
	return record.Schema{
		Table: name,
		Columns: []record.Column{
			record.Integer("position"),
			record.Integer("team_id"),
			record.Text("team_name"),
			record.Text("team_shortname"),
			record.Text("team_tla"),
			record.Text("team_crest"),
			record.Integer("played_games"),
			record.Text("form"),
			record.Integer("won"),
			record.Integer("draw"),
			record.Integer("lost"),
			record.Integer("points"),
			record.Integer("goals_for"),
			record.Integer("goals_against"),
			record.Integer("goal_difference"),
		},
	}
}

// ByName resolves a table's declared schema.
func ByName(name string) (record.Schema, bool) {
	switch name {
	case ChelseaMatches:
		return Matches(), true
	case ChelseaTeamDetails:
		return TeamDetails(), true
	case ChelseaPlayers:
		return Players(), true
	case CompetitionDetails:
		return Competitions(), true
	case PremierLeagueStandings, ChampionsLeagueStandings:
		return LeagueTable(name), true
	default:
		return record.Schema{}, false
	}
}

// StagingName is the file stem a table's batch is staged under.
func StagingName(name string) string {
	switch name {
	case ChelseaMatches:
		return "ChelseaMatches"
	case ChelseaTeamDetails:
		return "ChelseaTeamDetails"
	case ChelseaPlayers:
		return "ChelseaPlayers"
	case CompetitionDetails:
		return "CompetitionDetails"
	case PremierLeagueStandings:
		return "PremierLeagueStandings"
	case ChampionsLeagueStandings:
		return "ChampionsLeagueStandings"
	default:
		return name
	}
}
