package service

import (
	"time"

	"github.com/lucaslnrr/v0-response-monitor/internal/scoring"
)

// TierView is a canonical tier with its display label.
type TierView struct {
	Key   scoring.Tier `json:"key"`
	Label string       `json:"label"`
}

type UsageSummary struct {
	Count     int  `json:"count"`
	Max       *int `json:"max"`
	Remaining *int `json:"remaining"`
	Exhausted bool `json:"exhausted"`
}

type OverallSummary struct {
	Average  float64          `json:"average"`
	Count    int              `json:"count"`
	Tier     *TierView        `json:"tier"`
	Severity scoring.Severity `json:"severity"`
}

type ScaleSummary struct {
	Scale           string           `json:"scale"`
	WeightedAverage float64          `json:"weightedAverage"`
	Count           int              `json:"count"`
	Family          scoring.Family   `json:"family"`
	Tier            *TierView        `json:"tier"`
	Severity        scoring.Severity `json:"severity"`
}

type FactorSummary struct {
	Factor          string           `json:"factor"`
	Scale           string           `json:"scale"`
	WeightedAverage float64          `json:"weightedAverage"`
	Count           int              `json:"count"`
	Tier            *TierView        `json:"tier"`
	Severity        scoring.Severity `json:"severity"`
}

type QuestionRow struct {
	scoring.QuestionStat
	Severity scoring.Severity `json:"severity"`
}

type RiskBucket struct {
	RiskLevel string    `json:"risk_level"`
	Count     int       `json:"count"`
	Share     float64   `json:"share"`
	Tier      *TierView `json:"tier"`
}

// HourlyActivity counts recent responses per hour of day in Timezone. PeakHour is -1
// when there is nothing to count.
type HourlyActivity struct {
	Timezone string  `json:"timezone"`
	Counts   [24]int `json:"counts"`
	PeakHour int     `json:"peakHour"`
}

type RecentRow struct {
	ID        string            `json:"id"`
	CreatedAt string            `json:"created_at"`
	Score     *float64          `json:"score"`
	RiskLevel *string           `json:"risk_level"`
	Tier      *TierView         `json:"tier"`
	Severity  *scoring.Severity `json:"severity"`
}

// DailyFactorPoint is one point of a factor's daily average series.
type DailyFactorPoint struct {
	Date     string           `json:"date"`
	Factor   string           `json:"factor"`
	Average  float64          `json:"average"`
	Count    int              `json:"count"`
	Tier     *TierView        `json:"tier"`
	Severity scoring.Severity `json:"severity"`
}

type LinkInfo struct {
	Company   string `json:"company,omitempty"`
	Research  string `json:"research,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

// Dashboard is everything the rendering layer shows for one monitor token.
type Dashboard struct {
	TokenHash         string                    `json:"tokenHash"`
	TotalResponses    int                       `json:"totalResponses"`
	Usage             UsageSummary              `json:"usage"`
	Overall           OverallSummary            `json:"overall"`
	Scales            []ScaleSummary            `json:"scales"`
	Factors           []FactorSummary           `json:"factors"`
	Questions         []QuestionRow             `json:"questions"`
	RiskDistribution  []RiskBucket              `json:"riskDistribution"`
	ScoreDistribution scoring.ScoreDistribution `json:"scoreDistribution"`
	Hourly            HourlyActivity            `json:"hourly"`
	Evolution         []DailyFactorPoint        `json:"evolution"`
	RecentResponses   []RecentRow               `json:"recentResponses"`
	Link              LinkInfo                  `json:"link"`
	GeneratedAt       time.Time                 `json:"generatedAt"`
}
