package fantasy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/huddleai/huddle/internal/httpkit"
)

const defaultBaseURL = "https://fantasy.espn.com/apis/v3/games/ffl"

// Credentials is the opaque cookie pair a private league requires.
type Credentials struct {
	ESPNS2 string
	SWID   string
}

// Empty reports whether no credentials are present.
func (c Credentials) Empty() bool {
	return c.ESPNS2 == "" && c.SWID == ""
}

// Player is one rostered player.
type Player struct {
	Name         string `json:"name"`
	Position     string `json:"position"`
	InjuryStatus string `json:"injury_status,omitempty"`
}

// RosterSnapshot is a resolved team roster.
type RosterSnapshot struct {
	LeagueName string   `json:"league_name"`
	TeamName   string   `json:"team_name"`
	Players    []Player `json:"players"`
}

// RosterOutcome is the result of a roster request. Exactly one of
// Snapshot and TeamsOffered is set: a non-nil TeamsOffered means the
// caller must ask the user which team is theirs.
type RosterOutcome struct {
	Snapshot     *RosterSnapshot
	TeamsOffered []string
}

// StandingsEntry is one team's league standing.
type StandingsEntry struct {
	TeamName string `json:"team_name"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Ties     int    `json:"ties,omitempty"`
}

// Client fetches fantasy league data. Credentials are passed per call —
// the client itself holds none.
type Client struct {
	baseURL    string
	seasonYear int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a fantasy provider client for one season.
func NewClient(baseURL string, seasonYear int, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		seasonYear: seasonYear,
		logger:     logger.With("provider", "fantasy"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(10 * time.Second),
		),
	}
}

// Wire shapes

type wireLeague struct {
	Settings struct {
		Name string `json:"name"`
	} `json:"settings"`
	Teams []wireTeam `json:"teams"`
}

type wireTeam struct {
	ID       int    `json:"id"`
	Location string `json:"location"`
	Nickname string `json:"nickname"`
	Name     string `json:"name"`
	Record   struct {
		Overall struct {
			Wins   int `json:"wins"`
			Losses int `json:"losses"`
			Ties   int `json:"ties"`
		} `json:"overall"`
	} `json:"record"`
	Roster struct {
		Entries []struct {
			PlayerPoolEntry struct {
				Player struct {
					FullName          string `json:"fullName"`
					DefaultPositionID int    `json:"defaultPositionId"`
					InjuryStatus      string `json:"injuryStatus"`
				} `json:"player"`
			} `json:"playerPoolEntry"`
		} `json:"entries"`
	} `json:"roster"`
}

// displayName prefers the modern single name field, falling back to the
// legacy location+nickname pair.
func (t wireTeam) displayName() string {
	if t.Name != "" {
		return t.Name
	}
	return strings.TrimSpace(t.Location + " " + t.Nickname)
}

var positionNames = map[int]string{
	1:  "QB",
	2:  "RB",
	3:  "WR",
	4:  "TE",
	5:  "K",
	16: "D/ST",
}

// Roster fetches a league and resolves the caller's team.
//
// With no team name it returns the league's team list via TeamsOffered
// instead of an error — "which team is yours?" is a conversation step,
// not a failure. With a team name it matches case-insensitively against
// team display names.
func (c *Client) Roster(ctx context.Context, leagueID string, creds Credentials, teamName string) (*RosterOutcome, error) {
	league, err := c.fetchLeague(ctx, leagueID, creds, "mTeam", "mRoster")
	if err != nil {
		return nil, err
	}

	if teamName == "" {
		names := make([]string, 0, len(league.Teams))
		for _, t := range league.Teams {
			names = append(names, t.displayName())
		}
		c.logger.Debug("team selection needed", "league", leagueID, "teams", len(names))
		return &RosterOutcome{TeamsOffered: names}, nil
	}

	needle := strings.ToLower(teamName)
	for _, t := range league.Teams {
		if !strings.Contains(strings.ToLower(t.displayName()), needle) {
			continue
		}

		snap := &RosterSnapshot{
			LeagueName: league.Settings.Name,
			TeamName:   t.displayName(),
		}
		for _, entry := range t.Roster.Entries {
			p := entry.PlayerPoolEntry.Player
			pos := positionNames[p.DefaultPositionID]
			if pos == "" {
				pos = "FLEX"
			}
			player := Player{Name: p.FullName, Position: pos}
			if p.InjuryStatus != "" && p.InjuryStatus != "ACTIVE" {
				player.InjuryStatus = p.InjuryStatus
			}
			snap.Players = append(snap.Players, player)
		}

		c.logger.Debug("roster resolved", "league", leagueID, "team", snap.TeamName, "players", len(snap.Players))
		return &RosterOutcome{Snapshot: snap}, nil
	}

	// Unmatched name: offer the list again rather than failing, so the
	// user can correct a typo in the next message.
	names := make([]string, 0, len(league.Teams))
	for _, t := range league.Teams {
		names = append(names, t.displayName())
	}
	return &RosterOutcome{TeamsOffered: names}, nil
}

// Standings fetches league standings sorted as the provider returns them.
func (c *Client) Standings(ctx context.Context, leagueID string, creds Credentials) ([]StandingsEntry, error) {
	league, err := c.fetchLeague(ctx, leagueID, creds, "mTeam", "mStandings")
	if err != nil {
		return nil, err
	}

	entries := make([]StandingsEntry, 0, len(league.Teams))
	for _, t := range league.Teams {
		entries = append(entries, StandingsEntry{
			TeamName: t.displayName(),
			Wins:     t.Record.Overall.Wins,
			Losses:   t.Record.Overall.Losses,
			Ties:     t.Record.Overall.Ties,
		})
	}
	return entries, nil
}

func (c *Client) fetchLeague(ctx context.Context, leagueID string, creds Credentials, views ...string) (*wireLeague, error) {
	url := fmt.Sprintf("%s/seasons/%d/segments/0/leagues/%s", c.baseURL, c.seasonYear, leagueID)
	for i, v := range views {
		sep := "&"
		if i == 0 {
			sep = "?"
		}
		url += sep + "view=" + v
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if !creds.Empty() {
		req.AddCookie(&http.Cookie{Name: "espn_s2", Value: creds.ESPNS2})
		req.AddCookie(&http.Cookie{Name: "SWID", Value: creds.SWID})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusUnauthorized, http.StatusForbidden:
		httpkit.DrainAndClose(resp.Body, 2048)
		return nil, fmt.Errorf("league %s: %w", leagueID, ErrCredentialsInvalid)
	case http.StatusNotFound:
		httpkit.DrainAndClose(resp.Body, 2048)
		return nil, fmt.Errorf("league %s: %w", leagueID, ErrLeagueNotFound)
	case http.StatusTooManyRequests:
		httpkit.DrainAndClose(resp.Body, 2048)
		return nil, fmt.Errorf("league %s: %w", leagueID, ErrRateLimited)
	default:
		errBody := httpkit.ReadErrorBody(resp.Body, 2048)
		return nil, fmt.Errorf("fantasy provider error %d: %s", resp.StatusCode, errBody)
	}

	var league wireLeague
	if err := json.NewDecoder(resp.Body).Decode(&league); err != nil {
		return nil, fmt.Errorf("decode league: %w", err)
	}
	return &league, nil
}
