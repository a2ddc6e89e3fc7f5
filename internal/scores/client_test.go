package scores

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const scoreboardFixture = `{
	"week": {"number": 8},
	"season": {"type": 2},
	"events": [{
		"id": "401547401",
		"name": "Kansas City Chiefs at Buffalo Bills",
		"date": "2025-10-26T20:25Z",
		"status": {"type": {"description": "Final"}},
		"competitions": [{
			"status": {"type": {"description": "Final"}},
			"competitors": [
				{"homeAway": "home", "score": "24", "team": {"displayName": "Buffalo Bills"}},
				{"homeAway": "away", "score": "27", "team": {"displayName": "Kansas City Chiefs"}}
			]
		}]
	}]
}`

func TestScoreboard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scoreboard" {
			t.Errorf("path = %q, want /scoreboard", r.URL.Path)
		}
		if got := r.URL.Query().Get("week"); got != "8" {
			t.Errorf("week query = %q, want 8", got)
		}
		io.WriteString(w, scoreboardFixture)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, discardLogger())
	sb, err := c.Scoreboard(context.Background(), 8)
	if err != nil {
		t.Fatal(err)
	}

	if sb.Week != 8 || sb.SeasonType != 2 {
		t.Errorf("week/season = %d/%d, want 8/2", sb.Week, sb.SeasonType)
	}
	if len(sb.Games) != 1 {
		t.Fatalf("games = %d, want 1", len(sb.Games))
	}
	g := sb.Games[0]
	if g.ID != "401547401" || g.HomeTeam != "Buffalo Bills" || g.AwayTeam != "Kansas City Chiefs" {
		t.Errorf("unexpected game: %+v", g)
	}
	if g.HomeScore != "24" || g.AwayScore != "27" || g.Status != "Final" {
		t.Errorf("unexpected scores/status: %+v", g)
	}
}

func TestScoreboardProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, discardLogger())
	_, err := c.Scoreboard(context.Background(), 1)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("err = %v, want ErrProviderUnavailable", err)
	}
}

const summaryFixture = `{
	"header": {"competitions": [{
		"status": {"type": {"description": "Final"}},
		"competitors": [
			{"team": {"displayName": "Philadelphia Eagles"}},
			{"team": {"displayName": "Dallas Cowboys"}}
		]
	}]},
	"scoringPlays": [{
		"period": {"number": 2},
		"clock": {"displayValue": "4:12"},
		"team": {"displayName": "Philadelphia Eagles"},
		"text": "A.J. Brown 42 yd pass from Jalen Hurts",
		"scoreValue": 6,
		"awayScore": 0,
		"homeScore": 6
	}],
	"drives": {"previous": [{
		"team": {"displayName": "Philadelphia Eagles"},
		"result": "TD",
		"offensivePlays": 8,
		"yards": 75,
		"description": "8 plays, 75 yards, 4:30",
		"timeElapsed": {"displayValue": "4:30"}
	}]},
	"boxscore": {"teams": [{
		"team": {"displayName": "Philadelphia Eagles"},
		"statistics": [{"label": "Total Yards", "displayValue": "398"}]
	}]}
}`

func TestGameDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/summary" {
			t.Errorf("path = %q, want /summary", r.URL.Path)
		}
		if got := r.URL.Query().Get("event"); got != "401547401" {
			t.Errorf("event query = %q, want 401547401", got)
		}
		io.WriteString(w, summaryFixture)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, discardLogger())
	detail, err := c.GameDetail(context.Background(), "401547401")
	if err != nil {
		t.Fatal(err)
	}

	if detail.Matchup != "Philadelphia Eagles vs Dallas Cowboys" {
		t.Errorf("matchup = %q", detail.Matchup)
	}
	if detail.Status != "Final" {
		t.Errorf("status = %q, want Final", detail.Status)
	}
	if len(detail.ScoringPlays) != 1 || detail.ScoringPlays[0].Quarter != 2 {
		t.Errorf("scoring plays = %+v", detail.ScoringPlays)
	}
	if len(detail.Drives) != 1 || detail.Drives[0].Result != "TD" {
		t.Errorf("drives = %+v", detail.Drives)
	}
	if len(detail.BoxScore) != 1 || detail.BoxScore[0].Stats["Total Yards"] != "398" {
		t.Errorf("box score = %+v", detail.BoxScore)
	}
}

const teamsFixture = `{
	"sports": [{"leagues": [{"teams": [
		{"team": {
			"displayName": "Kansas City Chiefs",
			"record": {"items": [{"summary": "6-1"}]},
			"logos": [{"href": "https://example.com/kc.png"}]
		}},
		{"team": {
			"displayName": "Green Bay Packers",
			"record": {"items": [{"summary": "4-3"}]}
		}}
	]}]}]
}`

func TestTeamStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, teamsFixture)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, discardLogger())

	tests := []struct {
		query    string
		wantName string
		wantErr  bool
	}{
		{"chiefs", "Kansas City Chiefs", false},
		{"KANSAS CITY", "Kansas City Chiefs", false},
		{"packers", "Green Bay Packers", false},
		{"jaguars", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec, err := c.TeamStats(context.Background(), tt.query)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error for unknown team")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if rec.Name != tt.wantName {
				t.Errorf("name = %q, want %q", rec.Name, tt.wantName)
			}
			if rec.Record == "" {
				t.Error("record is empty")
			}
		})
	}
}
