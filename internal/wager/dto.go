package wager

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/muhvmmv/Tyche-Betting/internal/ledger"
	"github.com/muhvmmv/Tyche-Betting/internal/money"
)

// BetID accepts both string and numeric JSON ids, since clients send fixture ids either way.
type BetID string

func (b *BetID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = BetID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("bet id must be a string or number")
	}
	*b = BetID(n.String())
	return nil
}

// PlaceRequest is the betting slip submitted by the client.
type PlaceRequest struct {
	Bets []BetRequest `json:"bets" validate:"required,min=1,max=20,dive"`
}

type BetRequest struct {
	ID        BetID           `json:"id" validate:"required,max=64"`
	League    string          `json:"league" validate:"max=128"`
	HomeTeam  string          `json:"homeTeam" validate:"max=128"`
	AwayTeam  string          `json:"awayTeam" validate:"max=128"`
	Selection string          `json:"selection" validate:"required,max=128"`
	Odds      decimal.Decimal `json:"odds" validate:"required,gt=1,lte=1000"`
	Stake     money.Amount    `json:"stake"`
}

func (r PlaceRequest) inputs() []BetInput {
	out := make([]BetInput, 0, len(r.Bets))
	for _, b := range r.Bets {
		out = append(out, BetInput{
			ID:        string(b.ID),
			League:    b.League,
			HomeTeam:  b.HomeTeam,
			AwayTeam:  b.AwayTeam,
			Selection: b.Selection,
			Odds:      b.Odds,
			Stake:     b.Stake,
		})
	}
	return out
}

type PlaceResponse struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	TotalStake money.Amount    `json:"total_stake"`
	Balance    money.Amount    `json:"balance"`
	Wagers     []WagerResponse `json:"wagers"`
}

type WagerResponse struct {
	ID           string       `json:"id"`
	MatchID      string       `json:"match_id"`
	League       string       `json:"league"`
	HomeTeam     string       `json:"home_team"`
	AwayTeam     string       `json:"away_team"`
	Selection    string       `json:"selection"`
	Odds         json.Number  `json:"odds"`
	Stake        money.Amount `json:"stake"`
	PotentialWin money.Amount `json:"potential_win"`
	Status       string       `json:"status"`
	PlacedAt     time.Time    `json:"placed_at"`
	SettledAt    *time.Time   `json:"settled_at,omitempty"`
}

type StatsResponse struct {
	Success      bool         `json:"success"`
	Total        int          `json:"total"`
	Active       int          `json:"active"`
	Won          int          `json:"won"`
	Lost         int          `json:"lost"`
	TotalWagered money.Amount `json:"total_wagered"`
	TotalWon     money.Amount `json:"total_won"`
}

func toResponse(w ledger.Wager) WagerResponse {
	return WagerResponse{
		ID:           w.ID,
		MatchID:      w.MatchID,
		League:       w.League,
		HomeTeam:     w.HomeTeam,
		AwayTeam:     w.AwayTeam,
		Selection:    w.Selection,
		Odds:         json.Number(w.Odds.String()),
		Stake:        w.Stake,
		PotentialWin: w.PotentialWin,
		Status:       string(w.Status),
		PlacedAt:     w.PlacedAt,
		SettledAt:    w.SettledAt,
	}
}

func toResponses(ws []ledger.Wager) []WagerResponse {
	out := make([]WagerResponse, 0, len(ws))
	for _, w := range ws {
		out = append(out, toResponse(w))
	}
	return out
}
