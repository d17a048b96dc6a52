package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Role of an account. Only ADMIN may create, delete or draw contests.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ContestStatus is the lifecycle state of a contest. A contest starts OPEN
// and is flipped to FINISHED exactly once by the draw.
type ContestStatus string

const (
	StatusOpen     ContestStatus = "OPEN"
	StatusFinished ContestStatus = "FINISHED"
)

// IntList stores an ordered list of integers as a JSON column. Order is
// preserved through storage; drawn numbers must round-trip in draw order.
type IntList []int

func (l IntList) Value() (driver.Value, error) {
	if l == nil {
		l = IntList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *IntList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into IntList", src)
	}
}

// User is a registered account.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Contest is one scheduled instance of the lottery. DrawnNumbers stays empty
// until the contest is FINISHED and is kept in draw order, not sorted.
type Contest struct {
	ID           string          `db:"id" json:"id"`
	Number       int             `db:"number" json:"number"`
	PrizeValue   decimal.Decimal `db:"prize_value" json:"prizeValue"`
	DrawDate     time.Time       `db:"draw_date" json:"drawDate"`
	MaxNumbers   int             `db:"max_numbers" json:"maxNumbers"`
	Status       ContestStatus   `db:"status" json:"status"`
	DrawnNumbers IntList         `db:"drawn_numbers" json:"drawnNumbers"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
}

// Bet is one persisted game tied to a user and a contest. Hits is nil until
// the contest is settled.
type Bet struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"userId"`
	ContestID       string    `db:"contest_id" json:"contestId"`
	SelectedNumbers IntList   `db:"selected_numbers" json:"selectedNumbers"`
	Hits            *int      `db:"hits" json:"hits"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// BetWithContest carries a bet together with its contest, for listings.
type BetWithContest struct {
	Bet
	Contest Contest `json:"contest"`
}

// WinnerCounts are the anonymous per-category winner totals of a contest.
type WinnerCounts struct {
	Sena   int `json:"sena"`
	Quina  int `json:"quina"`
	Quadra int `json:"quadra"`
}
