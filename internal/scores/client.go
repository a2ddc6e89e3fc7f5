// Package scores provides the live-score and play-by-play provider
// adapter, the competition-week calculation, and the week-keyed score
// cache.
package scores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/huddleai/huddle/internal/httpkit"
)

const defaultBaseURL = "https://site.api.espn.com/apis/site/v2/sports/football/nfl"

// ErrProviderUnavailable is returned when the score provider cannot be
// reached and no cached data exists to fall back on.
var ErrProviderUnavailable = errors.New("score provider unavailable")

// GameSummary is one scoreboard entry.
type GameSummary struct {
	ID        string `json:"game_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	HomeScore string `json:"home_score"`
	AwayScore string `json:"away_score"`
	Date      string `json:"date"`
}

// Scoreboard is one week of games.
type Scoreboard struct {
	Week       int           `json:"week"`
	SeasonType int           `json:"season_type"`
	Games      []GameSummary `json:"games"`

	// Stale marks a cached response that could not be refreshed within
	// its TTL. Stale data beats no data for public scoreboard reads.
	Stale bool `json:"stale,omitempty"`
}

// ScoringPlay is one scoring event in a game.
type ScoringPlay struct {
	Quarter     int    `json:"quarter"`
	Clock       string `json:"clock"`
	Team        string `json:"team"`
	Description string `json:"description"`
	ScoreValue  int    `json:"score_value"`
	AwayScore   int    `json:"away_score"`
	HomeScore   int    `json:"home_score"`
}

// DriveSummary is one offensive drive.
type DriveSummary struct {
	Team        string `json:"team"`
	Result      string `json:"result"`
	Plays       int    `json:"plays"`
	Yards       int    `json:"yards"`
	Time        string `json:"time"`
	Description string `json:"description"`
}

// TeamStatLine is one team's box-score stats, label → display value.
type TeamStatLine struct {
	Team  string            `json:"team"`
	Stats map[string]string `json:"stats"`
}

// GameDetail is the play-by-play view of one game. Never cached — a
// live game's detail changes play to play.
type GameDetail struct {
	GameID       string         `json:"game_id"`
	Matchup      string         `json:"matchup"`
	Status       string         `json:"status"`
	ScoringPlays []ScoringPlay  `json:"scoring_plays"`
	Drives       []DriveSummary `json:"drives"`
	BoxScore     []TeamStatLine `json:"box_score"`
}

// TeamRecord is a team's season record summary.
type TeamRecord struct {
	Name   string `json:"name"`
	Record string `json:"record"`
	Logo   string `json:"logo,omitempty"`
}

// Client fetches from the public score provider. No credentials — the
// scoreboard and summary endpoints are open.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a score provider client.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With("provider", "scores"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(10*time.Second),
			httpkit.WithRetry(2, 250*time.Millisecond),
			httpkit.WithLogger(logger),
		),
	}
}

// Wire shapes (provider JSON, decoded minimally)

type wireScoreboard struct {
	Events []wireEvent `json:"events"`
	Week   struct {
		Number int `json:"number"`
	} `json:"week"`
	Season struct {
		Type int `json:"type"`
	} `json:"season"`
}

type wireEvent struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Date         string            `json:"date"`
	Status       wireStatus        `json:"status"`
	Competitions []wireCompetition `json:"competitions"`
}

type wireStatus struct {
	Type struct {
		Description string `json:"description"`
	} `json:"type"`
}

type wireCompetition struct {
	Status      wireStatus       `json:"status"`
	Competitors []wireCompetitor `json:"competitors"`
}

type wireCompetitor struct {
	HomeAway string `json:"homeAway"`
	Score    string `json:"score"`
	Team     struct {
		DisplayName string `json:"displayName"`
	} `json:"team"`
}

// Scoreboard fetches the scoreboard for a week. Week 0 means the
// provider's current week.
func (c *Client) Scoreboard(ctx context.Context, week int) (*Scoreboard, error) {
	url := c.baseURL + "/scoreboard"
	if week > 0 {
		url = fmt.Sprintf("%s?week=%d", url, week)
	}

	var wire wireScoreboard
	if err := c.getJSON(ctx, url, &wire); err != nil {
		return nil, err
	}

	sb := &Scoreboard{
		Week:       wire.Week.Number,
		SeasonType: wire.Season.Type,
	}
	for _, ev := range wire.Events {
		g := GameSummary{
			ID:     ev.ID,
			Name:   ev.Name,
			Date:   ev.Date,
			Status: ev.Status.Type.Description,
		}
		if len(ev.Competitions) > 0 {
			if g.Status == "" {
				g.Status = ev.Competitions[0].Status.Type.Description
			}
			for _, comp := range ev.Competitions[0].Competitors {
				switch comp.HomeAway {
				case "home":
					g.HomeTeam = comp.Team.DisplayName
					g.HomeScore = comp.Score
				case "away":
					g.AwayTeam = comp.Team.DisplayName
					g.AwayScore = comp.Score
				}
			}
		}
		sb.Games = append(sb.Games, g)
	}

	c.logger.Debug("scoreboard fetched", "week", sb.Week, "games", len(sb.Games))
	return sb, nil
}

type wireSummary struct {
	Header struct {
		Competitions []wireCompetition `json:"competitions"`
	} `json:"header"`
	ScoringPlays []struct {
		Period struct {
			Number int `json:"number"`
		} `json:"period"`
		Clock struct {
			DisplayValue string `json:"displayValue"`
		} `json:"clock"`
		Team struct {
			DisplayName string `json:"displayName"`
		} `json:"team"`
		Text       string `json:"text"`
		ScoreValue int    `json:"scoreValue"`
		AwayScore  int    `json:"awayScore"`
		HomeScore  int    `json:"homeScore"`
	} `json:"scoringPlays"`
	Drives struct {
		Previous []struct {
			Team struct {
				DisplayName string `json:"displayName"`
			} `json:"team"`
			Result      string `json:"result"`
			Plays       int    `json:"offensivePlays"`
			Yards       int    `json:"yards"`
			Description string `json:"description"`
			TimeElapsed struct {
				DisplayValue string `json:"displayValue"`
			} `json:"timeElapsed"`
		} `json:"previous"`
	} `json:"drives"`
	Boxscore struct {
		Teams []struct {
			Team struct {
				DisplayName string `json:"displayName"`
			} `json:"team"`
			Statistics []struct {
				Label        string `json:"label"`
				DisplayValue string `json:"displayValue"`
			} `json:"statistics"`
		} `json:"teams"`
	} `json:"boxscore"`
}

// maxDrives bounds how many recent drives are returned to the model.
const maxDrives = 10

// GameDetail fetches scoring plays, drives, and the box score for one
// game. Always fresh; see package Cache for why the scoreboard is the
// only cached read.
func (c *Client) GameDetail(ctx context.Context, gameID string) (*GameDetail, error) {
	url := fmt.Sprintf("%s/summary?event=%s", c.baseURL, gameID)

	var wire wireSummary
	if err := c.getJSON(ctx, url, &wire); err != nil {
		return nil, err
	}

	detail := &GameDetail{GameID: gameID}

	if len(wire.Header.Competitions) > 0 {
		comp := wire.Header.Competitions[0]
		detail.Status = comp.Status.Type.Description
		var names []string
		for _, competitor := range comp.Competitors {
			names = append(names, competitor.Team.DisplayName)
		}
		detail.Matchup = strings.Join(names, " vs ")
	}

	for _, p := range wire.ScoringPlays {
		detail.ScoringPlays = append(detail.ScoringPlays, ScoringPlay{
			Quarter:     p.Period.Number,
			Clock:       p.Clock.DisplayValue,
			Team:        p.Team.DisplayName,
			Description: p.Text,
			ScoreValue:  p.ScoreValue,
			AwayScore:   p.AwayScore,
			HomeScore:   p.HomeScore,
		})
	}

	drives := wire.Drives.Previous
	if len(drives) > maxDrives {
		drives = drives[len(drives)-maxDrives:]
	}
	for _, d := range drives {
		detail.Drives = append(detail.Drives, DriveSummary{
			Team:        d.Team.DisplayName,
			Result:      d.Result,
			Plays:       d.Plays,
			Yards:       d.Yards,
			Time:        d.TimeElapsed.DisplayValue,
			Description: d.Description,
		})
	}

	for _, t := range wire.Boxscore.Teams {
		line := TeamStatLine{
			Team:  t.Team.DisplayName,
			Stats: make(map[string]string, len(t.Statistics)),
		}
		for _, stat := range t.Statistics {
			line.Stats[stat.Label] = stat.DisplayValue
		}
		detail.BoxScore = append(detail.BoxScore, line)
	}

	c.logger.Debug("game detail fetched",
		"game_id", gameID,
		"scoring_plays", len(detail.ScoringPlays),
		"drives", len(detail.Drives),
	)
	return detail, nil
}

type wireTeams struct {
	Sports []struct {
		Leagues []struct {
			Teams []struct {
				Team struct {
					DisplayName string `json:"displayName"`
					Record      struct {
						Items []struct {
							Summary string `json:"summary"`
						} `json:"items"`
					} `json:"record"`
					Logos []struct {
						Href string `json:"href"`
					} `json:"logos"`
				} `json:"team"`
			} `json:"teams"`
		} `json:"leagues"`
	} `json:"sports"`
}

// TeamStats looks up a team's record by (partial, case-insensitive) name.
func (c *Client) TeamStats(ctx context.Context, teamName string) (*TeamRecord, error) {
	var wire wireTeams
	if err := c.getJSON(ctx, c.baseURL+"/teams", &wire); err != nil {
		return nil, err
	}

	needle := strings.ToLower(teamName)
	for _, sport := range wire.Sports {
		for _, league := range sport.Leagues {
			for _, entry := range league.Teams {
				team := entry.Team
				if !strings.Contains(strings.ToLower(team.DisplayName), needle) {
					continue
				}
				rec := &TeamRecord{Name: team.DisplayName}
				if len(team.Record.Items) > 0 {
					rec.Record = team.Record.Items[0].Summary
				}
				if len(team.Logos) > 0 {
					rec.Logo = team.Logos[0].Href
				}
				return rec, nil
			}
		}
	}

	return nil, fmt.Errorf("team not found: %s", teamName)
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 2048)
		return fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, resp.StatusCode, errBody)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
