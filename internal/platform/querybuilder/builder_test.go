package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("column_name").
		From("information_schema.columns").
		Where(Eq("table_schema", "public"), Eq("table_name", "chelsea_players")).
		OrderBy("ordinal_position").
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "public" || args[1] != "chelsea_players" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_RequiresTable(t *testing.T) {
	if _, _, err := Select("id").ToSQL(); err == nil {
		t.Fatalf("expected missing table error")
	}
}

func TestTruncateTable(t *testing.T) {
	query, err := TruncateTable(`"public"."chelsea_matches"`)
	if err != nil {
		t.Fatalf("build truncate: %v", err)
	}
	if query != `TRUNCATE TABLE "public"."chelsea_matches"` {
		t.Fatalf("unexpected query: %s", query)
	}
	if _, err := TruncateTable(" "); err == nil {
		t.Fatalf("expected missing table error")
	}
}
