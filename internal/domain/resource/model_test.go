package resource

import (
	"testing"

	"github.com/riskibarqy/football-etl/internal/domain/table"
)

func TestDefaultCatalog_UsesConfiguredIDs(t *testing.T) {
	t.Parallel()

	catalog := DefaultCatalog(CatalogConfig{TeamID: 57})
	if len(catalog) != 4 {
		t.Fatalf("expected 4 resources, got=%d", len(catalog))
	}
	if catalog[0].Path != "v4/teams/57/matches/" {
		t.Fatalf("unexpected matches path %q", catalog[0].Path)
	}
	if catalog[2].Path != "v4/competitions/2021/standings" {
		t.Fatalf("unexpected premier league path %q", catalog[2].Path)
	}
	if catalog[3].Tables[0] != table.ChampionsLeagueStandings {
		t.Fatalf("unexpected champions league table %q", catalog[3].Tables[0])
	}

	for _, item := range catalog {
		if err := item.Validate(); err != nil {
			t.Fatalf("catalog entry %s invalid: %v", item.Name, err)
		}
	}
}

func TestDescriptor_IsStandings(t *testing.T) {
	t.Parallel()

	standings := 0
	for _, item := range DefaultCatalog(DefaultCatalogConfig()) {
		if item.IsStandings() {
			standings++
		}
	}
	if standings != 2 {
		t.Fatalf("expected 2 standings resources, got=%d", standings)
	}
}

func TestDescriptor_ValidateRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	d := Descriptor{Name: "X", Path: "v4/x", Kind: "fixtures", Tables: []string{"x"}}
	if err := d.Validate(); err == nil {
		t.Fatalf("expected unknown kind to be rejected")
	}
}
